package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Info is what pdfcpu reports about a document before its text is read.
type Info struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	PageCount int    `json:"page_count"`
	Encrypted bool   `json:"encrypted"`
}

// Inspect parses the cross-reference structure of path with pdfcpu in relaxed
// mode and counts its pages.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, docErr("inspect", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return Info{}, docErr("inspect", path, err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return Info{}, docErr("inspect", path, fmt.Errorf("failed to read PDF context: %w", err))
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, docErr("inspect", path, fmt.Errorf("failed to ensure page count: %w", err))
	}

	return Info{
		Path:      path,
		Size:      stat.Size(),
		PageCount: ctx.PageCount,
		Encrypted: ctx.Encrypt != nil,
	}, nil
}
