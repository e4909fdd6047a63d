package render

// fitFontSize picks a caption size that keeps all lines on the canvas:
// roughly a tenth of the height, shrunk further when many lines compete
// for the top and bottom bands.
func fitFontSize(width, height, lines int) float64 {
	size := float64(height) / 10
	if lines > 2 {
		size = size * 2 / float64(lines)
	}
	if max := float64(width) / 8; size > max {
		size = max
	}
	if size < 10 {
		size = 10
	}
	return size
}

// baselineFor returns the text baseline Y for line i of n. The first half
// of the lines stacks down from the top edge, the second half stacks up
// from the bottom, matching the classic top/bottom meme layout.
func baselineFor(i, n, height, lineH int) int {
	top := n / 2
	if n == 1 {
		top = 0
	}
	if i < top {
		return edgePadding + lineH*(i+1)
	}
	fromBottom := n - 1 - i
	return height - edgePadding - lineH*fromBottom
}

// targetSize resolves requested dimensions against the source size; when
// only one dimension is requested the other follows the aspect ratio.
func targetSize(srcW, srcH, reqW, reqH int) (int, int) {
	switch {
	case reqW > 0 && reqH > 0:
		return reqW, reqH
	case reqW > 0:
		return reqW, max(1, srcH*reqW/srcW)
	case reqH > 0:
		return max(1, srcW*reqH/srcH), reqH
	}
	return srcW, srcH
}
