package publish

import (
	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/updateinfo"
)

// DefaultBranch receives updates published without a branch.
const DefaultBranch = "main"

// UpdateGroupInput describes an update group to record once its assets have
// been uploaded.
type UpdateGroupInput struct {
	ProjectID      string
	Branch         string
	Message        string
	RuntimeVersion string
	Group          updateinfo.Group
}

// PublishedUpdate is the record of one platform's update within a group.
type PublishedUpdate struct {
	ID                string         `json:"id"`
	Group             string         `json:"group"`
	RuntimeVersion    string         `json:"runtimeVersion"`
	Platform          asset.Platform `json:"platform"`
	ManifestPermalink string         `json:"manifestPermalink"`
}
