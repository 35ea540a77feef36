package hocr

import (
	"image"
	"math"
	"sort"

	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// Line is a run of word records sharing a baseline
type Line struct {
	Words  []textinfo.TextInfo
	Bounds image.Rectangle
}

// GroupLines sorts words by vertical center, then left to right, and merges
// a word into the current line when its center lies within a third of the
// line's mean height of the line's mean center. The input is not modified.
func GroupLines(words []textinfo.TextInfo) []Line {
	if len(words) == 0 {
		return nil
	}

	sorted := append([]textinfo.TextInfo(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Frame.Center(), sorted[j].Frame.Center()
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	var lines []Line
	var current []textinfo.TextInfo

	for _, word := range sorted {
		if len(current) == 0 || sameLine(current, word) {
			current = append(current, word)
			continue
		}
		lines = append(lines, newLine(current))
		current = []textinfo.TextInfo{word}
	}
	if len(current) > 0 {
		lines = append(lines, newLine(current))
	}

	return lines
}

func sameLine(line []textinfo.TextInfo, word textinfo.TextInfo) bool {
	var height, center float64
	for _, w := range line {
		height += w.Frame.Height
		center += w.Frame.Center().Y
	}
	n := float64(len(line))

	return math.Abs(word.Frame.Center().Y-center/n) <= height/n/3
}

func newLine(words []textinfo.TextInfo) Line {
	bounds := words[0].Frame.ToImageRect()
	for _, w := range words[1:] {
		bounds = bounds.Union(w.Frame.ToImageRect())
	}
	sort.SliceStable(words, func(i, j int) bool { return words[i].Frame.X < words[j].Frame.X })
	return Line{Words: words, Bounds: bounds}
}
