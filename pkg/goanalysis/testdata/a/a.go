package a

type node struct{ val int }

func selfAssign(x int) int {
	x = x // want "Remove or correct this useless self-assignment."
	return x
}

func deref() int {
	var p *node
	return p.val // want "'p' is nil on at least one execution path."
}

func guarded(p *node) int {
	if p != nil {
		return p.val
	}
	return 0
}

func nested(a, b, c, d int) int {
	if a > 0 {
		if b > 0 {
			if c > 0 {
				if d > 0 { // want "Refactor this code to not nest more than 3 control flow statements."
					return d
				}
			}
		}
	}
	return a
}
