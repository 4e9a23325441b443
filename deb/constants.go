package deb

// ControlField represents a field written to a Debian control file.
type ControlField string

const (
	FieldPackage      ControlField = "Package"
	FieldVersion      ControlField = "Version"
	FieldSection      ControlField = "Section"
	FieldPriority     ControlField = "Priority"
	FieldArchitecture ControlField = "Architecture"
	FieldDepends      ControlField = "Depends"
	FieldMaintainer   ControlField = "Maintainer"
	FieldDescription  ControlField = "Description"
)

// ControlFile represents a file found in the DEBIAN directory of a staged package
// and in the control archive of the built .deb.
type ControlFile string

const (
	FileControl  ControlFile = "control"
	FileMd5sums  ControlFile = "md5sums"
	FilePostinst ControlFile = "postinst"
)

// PackageFile represents a member of the .deb archive (ar format).
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgControlTar   PackageFile = "control.tar"
	PkgDataTar      PackageFile = "data.tar"
)

// ControlDir is the name of the metadata directory at the root of a staged package tree.
const ControlDir = "DEBIAN"

// debianBinary is the content of the debian-binary member.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html#FORMAT
const debianBinary = "2.0\n"
