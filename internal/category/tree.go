package category

import "time"

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Icon        *string   `json:"icon"`
	IsActive    bool      `json:"is_active"`
	ParentID    *int64    `json:"parent_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Node is a category with its children nested, for tree responses.
type Node struct {
	Category
	Children []*Node `json:"children"`
}

// BuildTree nests a flat category listing under its roots. Children of
// absent parents (filtered out, e.g. inactive) surface as roots rather than
// disappearing.
func BuildTree(cats []Category) []*Node {
	nodes := make(map[int64]*Node, len(cats))
	for _, c := range cats {
		nodes[c.ID] = &Node{Category: c, Children: []*Node{}}
	}

	roots := make([]*Node, 0)
	for _, c := range cats {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// Ancestors walks parent links from the given category upward, nearest
// first. The walk is iterative and refuses to revisit a node, so malformed
// cyclic data terminates instead of recursing forever.
func Ancestors(byID map[int64]Category, id int64) []Category {
	var out []Category
	seen := map[int64]bool{id: true}

	current, ok := byID[id]
	for ok && current.ParentID != nil {
		parentID := *current.ParentID
		if seen[parentID] {
			break
		}
		seen[parentID] = true

		parent, found := byID[parentID]
		if !found {
			break
		}
		out = append(out, parent)
		current = parent
		ok = true
	}
	return out
}

// Descendants collects the whole subtree below a category using an explicit
// stack, bounding depth for pathological trees. The root itself is not
// included.
func Descendants(cats []Category, rootID int64) []Category {
	children := make(map[int64][]Category)
	for _, c := range cats {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	var out []Category
	seen := map[int64]bool{rootID: true}
	stack := []int64{rootID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range children[id] {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			out = append(out, child)
			stack = append(stack, child.ID)
		}
	}
	return out
}
