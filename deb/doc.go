// Package deb provides the Debian binary package format pieces used when building a
// package from a staged directory tree.
//
// # Staged Trees
//
// A staged tree mirrors the target filesystem and carries its metadata in a DEBIAN
// directory at its root:
//
//	mypackage_2.0_amd64/
//	  DEBIAN/
//	    control
//	    md5sums
//	    postinst
//	  usr/bin/mytool
//
// # Features
//
//   - Render the control file in a fixed field order (Control).
//   - Compute md5sums manifests over the payload (PayloadFiles, Md5sums).
//   - Archive a staged tree into a .deb without dpkg-deb (WriteStaged), with gzip, xz or
//     uncompressed members.
//   - Read back a .deb, including ones produced by dpkg-deb with zstd members (Inspect).
package deb
