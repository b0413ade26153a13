package extract

import (
	"encoding/json"
	"strings"

	"github.com/adverant/nexus/pdfocr/internal/regions"
)

// PageResult is everything produced for one page. Values are built once
// and never modified afterwards.
type PageResult struct {
	Number  int
	Text    string
	Image   string
	Crops   []string
	Regions []regions.Region
}

// Result is the response payload of one extraction.
type Result struct {
	Filename      string   `json:"filename"`
	Text          string   `json:"text"`
	Images        []string `json:"images"`
	CroppedImages []string `json:"cropped_images,omitempty"`

	// DiagramsEnabled controls whether cropped_images is present, even when empty.
	DiagramsEnabled bool `json:"-"`
}

// Assemble folds page results, in order, into the final payload. Each page
// contributes its text and a newline; the joined text is trimmed once.
func Assemble(filename string, pages []PageResult, diagrams bool) *Result {
	var text strings.Builder
	res := &Result{
		Filename:        filename,
		Images:          make([]string, 0, len(pages)),
		DiagramsEnabled: diagrams,
	}
	if diagrams {
		res.CroppedImages = []string{}
	}
	for _, p := range pages {
		text.WriteString(p.Text)
		text.WriteString("\n")
		res.Images = append(res.Images, p.Image)
		if diagrams {
			res.CroppedImages = append(res.CroppedImages, p.Crops...)
		}
	}
	res.Text = strings.TrimSpace(text.String())
	return res
}

// MarshalJSON emits cropped_images whenever diagram extraction ran.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	if !r.DiagramsEnabled {
		return json.Marshal(plain(r))
	}
	crops := r.CroppedImages
	if crops == nil {
		crops = []string{}
	}
	return json.Marshal(struct {
		plain
		CroppedImages []string `json:"cropped_images"`
	}{plain(r), crops})
}

// UnmarshalJSON restores DiagramsEnabled from the presence of cropped_images.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var aux struct {
		plain
		CroppedImages *[]string `json:"cropped_images"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Result(aux.plain)
	if aux.CroppedImages != nil {
		r.CroppedImages = *aux.CroppedImages
		r.DiagramsEnabled = true
	}
	return nil
}
