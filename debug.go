package sprig

import "go.uber.org/zap"

// Tree-shape thresholds checked in debug mode.
const (
	debugMaxTreeDepth  = 32
	debugMaxChildCount = 1000
)

// debugCheck warns when n sits deeper than debugMaxTreeDepth or its parent
// holds more than debugMaxChildCount children. Both usually mean a scene is
// being built in a loop that never detaches.
func (s *System) debugCheck(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		s.log.Warn("tree depth exceeds threshold",
			zap.String("node", n.Name),
			zap.Int("depth", depth),
			zap.Int("threshold", debugMaxTreeDepth),
		)
	}
	if p := n.parent; p != nil && len(p.children) > debugMaxChildCount {
		s.log.Warn("child count exceeds threshold",
			zap.String("node", p.Name),
			zap.Int("children", len(p.children)),
			zap.Int("threshold", debugMaxChildCount),
		)
	}
}
