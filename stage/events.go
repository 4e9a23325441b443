package stage

import (
	"encoding/json"
	"fmt"
)

// Listener is a callback function that receives events during the build process.
type Listener func(fmt.Stringer)

func jsonString(v interface{}) string {
	b, _ := json.Marshal(map[string]interface{}{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventStaged is emitted when the staging directories exist.
type EventStaged struct {
	Path string `json:"path,omitempty"`
}

func (e EventStaged) String() string { return jsonString(e) }

// EventControlWritten is emitted when DEBIAN/control is written.
type EventControlWritten struct {
	Path string `json:"path,omitempty"`
}

func (e EventControlWritten) String() string { return jsonString(e) }

// EventScriptWritten is emitted when a maintainer script is written.
type EventScriptWritten struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
}

func (e EventScriptWritten) String() string { return jsonString(e) }

// EventSourceStaged is emitted when a source file or directory is copied into the tree.
type EventSourceStaged struct {
	Src string `json:"src,omitempty"`
	Dst string `json:"dst,omitempty"`
	Dir bool   `json:"dir,omitempty"`
}

func (e EventSourceStaged) String() string { return jsonString(e) }

// EventManifestWritten is emitted when DEBIAN/md5sums is written.
type EventManifestWritten struct {
	Path    string `json:"path,omitempty"`
	Entries int    `json:"entries,omitempty"`
}

func (e EventManifestWritten) String() string { return jsonString(e) }

// EventPackageBuilt is emitted when the archive is produced.
type EventPackageBuilt struct {
	Path string `json:"path,omitempty"`
}

func (e EventPackageBuilt) String() string { return jsonString(e) }
