// Package assets picks a random decorative image for a page, e.g. the banner
// of a vacancy. Pickers are injected into request handling so that nothing in
// the request path scans a filesystem.
package assets

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
)

// ErrNoAssets is returned when a category has no images to choose from.
var ErrNoAssets = errors.New("no assets available")

// Picker returns a public reference (URL) to a random asset in category.
type Picker interface {
	Pick(ctx context.Context, category string) (string, error)
}

// StaticPicker chooses from a fixed list of file names per category.
type StaticPicker struct {
	baseURL string
	files   map[string][]string
	intn    func(n int) int
}

// NewStaticPicker builds a picker whose references are baseURL + category + "/" + file.
func NewStaticPicker(baseURL string, files map[string][]string) *StaticPicker {
	return &StaticPicker{baseURL: strings.TrimSuffix(baseURL, "/") + "/", files: files, intn: rand.IntN}
}

func (p *StaticPicker) Pick(_ context.Context, category string) (string, error) {
	names := p.files[category]
	if len(names) == 0 {
		return "", ErrNoAssets
	}
	return p.baseURL + strings.Trim(category, "/") + "/" + names[p.intn(len(names))], nil
}
