package layout

import "strings"

type nodeKind int

const (
	containerNode nodeKind = iota
	imageNode
)

// node is one vertex of the image spanning tree. Nodes live in a slice and
// refer to their children by index.
type node struct {
	kind     nodeKind
	el       ElementID
	children []int
	images   int
}

// Segment finds the pages of a document.
//
// It builds the smallest tree spanning the root and every image embedded
// as a data: URI, then descends from the root into whichever child holds
// more than half of all images. The element children of the node where
// the descent stops are the page roots.
//
// ok is false when the document has fewer than two embedded images or the
// pagination root has no element children.
func Segment(v View) (pages []ElementID, ok bool) {
	root := v.Root()
	images := embeddedImages(v, root)
	if len(images) == 0 {
		return nil, false
	}

	nodes := []node{{kind: containerNode, el: root}}
	index := map[ElementID]int{root: 0}
	for _, img := range images {
		nodes = append(nodes, node{kind: imageNode, el: img})
		child := len(nodes) - 1
		index[img] = child

		el, hasParent := v.Parent(img)
		for hasParent {
			if at, seen := index[el]; seen {
				nodes[at].children = append(nodes[at].children, child)
				break
			}
			nodes = append(nodes, node{kind: containerNode, el: el, children: []int{child}})
			child = len(nodes) - 1
			index[el] = child
			el, hasParent = v.Parent(el)
		}
	}

	total := countImages(nodes, 0)
	if total <= 1 {
		return nil, false
	}

	cur := 0
descend:
	for {
		for _, c := range nodes[cur].children {
			if float64(nodes[c].images) > float64(total)/2 {
				cur = c
				continue descend
			}
		}
		break
	}

	pages = v.Children(nodes[cur].el)
	if len(pages) == 0 {
		return nil, false
	}
	return pages, true
}

func countImages(nodes []node, i int) int {
	n := &nodes[i]
	if n.kind == imageNode {
		n.images = 1
		return 1
	}
	sum := 0
	for _, c := range n.children {
		sum += countImages(nodes, c)
	}
	n.images = sum
	return sum
}

// embeddedImages lists, in document order, the img elements below root
// whose src is a data: URI.
func embeddedImages(v View, root ElementID) []ElementID {
	var out []ElementID
	var walk func(el ElementID)
	walk = func(el ElementID) {
		for _, c := range v.Children(el) {
			if isImage(v, c) {
				if src, ok := v.Attribute(c, "src"); ok && strings.HasPrefix(src, "data:") {
					out = append(out, c)
				}
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func isImage(v View, el ElementID) bool {
	return strings.EqualFold(v.TagName(el), "img")
}
