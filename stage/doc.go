// Package stage builds Debian binary packages from a key/value configuration.
//
// Resolve merges defaults into the configuration, derives the staging paths and validates
// it. A Builder then materializes the staging tree under
// {workspaceBasedir}/{shortName}/{version}/{buildId}/{fullName}, copies the sources into it
// with cp(1) and rsync(1), writes DEBIAN/control, DEBIAN/postinst and DEBIAN/md5sums, and
// runs dpkg-deb(1) to produce {fullName}.deb next to the tree.
//
//	b, err := stage.New(stage.Values{
//		"shortName":   "foo",
//		"version":     "1.0",
//		"section":     "utils",
//		"description": "Foo tools",
//		"maintainer":  "Jane <jane@example.com>",
//	})
//	if err != nil {
//		return err
//	}
//	b.AddSource("/opt/foo/bin/foo", "/usr/bin")
//	path, err := b.Build(ctx)
//
// External commands never go through a shell and never depend on the process working
// directory; the working directory of the caller is left untouched.
package stage
