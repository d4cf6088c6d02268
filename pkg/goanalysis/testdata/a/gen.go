// Code generated by hand for tests. DO NOT EDIT.

package a

func generated(y int) int {
	y = y
	return y
}
