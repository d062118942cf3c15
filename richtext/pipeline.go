package richtext

import (
	"context"
	"strings"

	"github.com/meettilavat/blog-project/imagesize"
)

// Resolver resolves intrinsic dimensions for a set of image sources. Sources
// it cannot resolve are left out of the result.
type Resolver interface {
	Resolve(ctx context.Context, srcs []string) map[string]imagesize.Dimensions
}

// CollectImageSources returns the distinct sources of images that lack
// explicit dimensions, in document order. Only sources that can be probed
// (http, https, data URIs) are returned.
func CollectImageSources(doc *Node) []string {
	seen := make(map[string]struct{})
	var out []string
	walk(doc, func(n *Node) {
		if n.Kind() != KindImage {
			return
		}
		img := n.Image()
		if img.Src == "" || (img.Width > 0 && img.Height > 0) {
			return
		}
		if !probeable(img.Src) {
			return
		}
		if _, dup := seen[img.Src]; dup {
			return
		}
		seen[img.Src] = struct{}{}
		out = append(out, img.Src)
	})
	return out
}

func probeable(src string) bool {
	if strings.HasPrefix(strings.ToLower(src), "data:image/") {
		return SafeImageSrc(src)
	}
	switch scheme(src) {
	case "http", "https":
		return true
	}
	return false
}

// Prepare runs the collect and probe phases for doc and returns a copy of r
// whose Dimensions hold every resolved size. Data URIs are probed locally;
// remote sources go to res in one batch. The returned renderer's Render is
// pure and does no I/O.
func (r *Renderer) Prepare(ctx context.Context, doc *Node, res Resolver) *Renderer {
	prepared := *r
	dims := make(map[string]imagesize.Dimensions, len(r.Dimensions))
	for k, v := range r.Dimensions {
		dims[k] = v
	}

	var remote []string
	for _, src := range CollectImageSources(Sanitize(doc)) {
		if _, ok := dims[src]; ok {
			continue
		}
		if strings.HasPrefix(strings.ToLower(src), "data:") {
			if d, ok := imagesize.ProbeDataURI(src); ok {
				dims[src] = d
			}
			continue
		}
		remote = append(remote, src)
	}
	if res != nil && len(remote) > 0 {
		for src, d := range res.Resolve(ctx, remote) {
			dims[src] = d
		}
	}
	prepared.Dimensions = dims
	return &prepared
}
