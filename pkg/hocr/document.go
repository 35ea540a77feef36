package hocr

import (
	"fmt"
	"html"
	"image"
	"strings"

	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

// FromResult renders one ocr_line per record
func FromResult(r textinfo.Result) string {
	var lines []string
	for i, info := range r.Infos {
		lines = append(lines, fmt.Sprintf(`<span class='ocr_line' id='line_%d' title='%s'>%s</span>`,
			i+1, title(info), html.EscapeString(info.Text)))
	}
	return WrapInHOCRDocument(pageBox(r), strings.Join(lines, "\n"))
}

// FromWords treats every record as a word, groups the words into lines and
// renders ocrx_word spans inside each ocr_line
func FromWords(r textinfo.Result) string {
	var lines []string
	wordIndex := 0
	for i, line := range GroupLines(r.Infos) {
		var words []string
		for _, word := range line.Words {
			wordIndex++
			words = append(words, fmt.Sprintf(`<span class='ocrx_word' id='word_%d' title='%s'>%s</span>`,
				wordIndex, title(word), html.EscapeString(word.Text)))
		}
		lines = append(lines, fmt.Sprintf(`<span class='ocr_line' id='line_%d' title='bbox %s'>%s</span>`,
			i+1, bbox(line.Bounds), strings.Join(words, " ")))
	}
	return WrapInHOCRDocument(pageBox(r), strings.Join(lines, "\n"))
}

// WrapInHOCRDocument wraps content in a complete hOCR HTML document
func WrapInHOCRDocument(page image.Rectangle, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
<head>
<title></title>
<meta http-equiv="Content-Type" content="text/html;charset=utf-8" />
<meta name='ocr-system' content='textframe' />
<meta name='ocr-capabilities' content='ocr_page ocr_line ocrx_word' />
</head>
<body>
<div class='ocr_page' id='page_1' title='bbox %s'>
%s
</div>
</body>
</html>`, bbox(page), content)
}

func title(info textinfo.TextInfo) string {
	return fmt.Sprintf("bbox %s; x_id %s", bbox(info.Frame.ToImageRect()), info.UniqueID)
}

func bbox(r image.Rectangle) string {
	return fmt.Sprintf("%d %d %d %d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

func pageBox(r textinfo.Result) image.Rectangle {
	return image.Rect(0, 0, int(r.Image.Width+0.5), int(r.Image.Height+0.5))
}
