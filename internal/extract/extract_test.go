package extract

import (
    "math"
    "strings"
    "testing"
)

const bboxLayout = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title></title></head>
<body>
<doc>
  <page width="612.000000" height="792.000000">
    <flow>
      <block xMin="72.000000" yMin="70.500000" xMax="300.250000" yMax="98.000000">
        <line xMin="72.000000" yMin="70.500000" xMax="300.250000" yMax="82.000000">
          <word xMin="72.000000" yMin="70.500000" xMax="120.000000" yMax="82.000000">Quarterly</word>
          <word xMin="124.000000" yMin="70.500000" xMax="180.000000" yMax="82.000000">Report</word>
        </line>
        <line xMin="72.000000" yMin="86.000000" xMax="200.000000" yMax="98.000000">
          <word xMin="72.000000" yMin="86.000000" xMax="200.000000" yMax="98.000000">2024</word>
        </line>
      </block>
      <block xMin="72" yMin="120" xMax="72" yMax="130"></block>
    </flow>
  </page>
  <page width="612.000000" height="792.000000">
    <flow>
      <block xMin="50" yMin="60" xMax="150" yMax="75">
        <line xMin="50" yMin="60" xMax="150" yMax="75"><word xMin="50" yMin="60" xMax="150" yMax="75">Totals</word></line>
      </block>
    </flow>
  </page>
</doc>
</body>
</html>`

func TestParseBBoxLayout(t *testing.T) {
    boxes, err := ParseBBoxLayout(strings.NewReader(bboxLayout))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if len(boxes) != 2 {
        t.Fatalf("expected 2 non-empty blocks, got %d: %+v", len(boxes), boxes)
    }
    first := boxes[0]
    if first.Page != 1 || first.Text != "Quarterly Report\n2024" {
        t.Fatalf("first block: %+v", first)
    }
    if first.X0 != 72 || first.Y0 != 70.5 || first.X1 != 300.25 || first.Y1 != 98 {
        t.Fatalf("first bbox: %+v", first)
    }
    if first.Confidence != nil {
        t.Fatalf("bbox-layout has no confidence")
    }
    if boxes[1].Page != 2 || boxes[1].Text != "Totals" {
        t.Fatalf("second block: %+v", boxes[1])
    }
}

const hocrPage = `<!DOCTYPE html>
<html><head><title></title></head><body>
<div class='ocr_page' id='page_1' title='image "p.png"; bbox 0 0 2550 3300; ppageno 0'>
 <div class='ocr_carea' title="bbox 100 100 900 260">
  <p class='ocr_par'>
   <span class='ocr_line' id='line_1_1' title="bbox 100 100 900 140; baseline 0 -8; x_size 40">
    <span class='ocrx_word' title='bbox 100 100 400 140; x_wconf 96'>Invoice</span>
    <span class='ocrx_word' title='bbox 420 100 900 140; x_wconf 90'>Total</span>
   </span>
   <span class='ocr_line' title="bbox 100 200 500 240">
    <span class='ocrx_word' title='bbox 100 200 500 240'>  </span>
   </span>
   <span class='ocr_header' title="bbox 100 250 300 260; x_size 10">
    <span class='ocrx_word' title='bbox 100 250 300 260; x_wconf 40'>Page</span>
   </span>
  </p>
 </div>
</div>
</body></html>`

func TestParseHOCR(t *testing.T) {
    boxes, err := HOCR{Page: 3}.Parse(strings.NewReader(hocrPage))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if len(boxes) != 2 {
        t.Fatalf("expected 2 lines, got %d: %+v", len(boxes), boxes)
    }
    line := boxes[0]
    if line.Text != "Invoice Total" || line.Page != 3 {
        t.Fatalf("line: %+v", line)
    }
    if line.X0 != 100 || line.Y0 != 100 || line.X1 != 900 || line.Y1 != 140 {
        t.Fatalf("bbox: %+v", line)
    }
    if line.Confidence == nil || math.Abs(*line.Confidence-93) > 1e-9 {
        t.Fatalf("confidence: %v", line.Confidence)
    }
    if boxes[1].Text != "Page" || *boxes[1].Confidence != 40 {
        t.Fatalf("header line: %+v", boxes[1])
    }
}

func TestTitleProps(t *testing.T) {
    p := titleProps(`image "scan.png"; bbox 1 2 3 4; x_wconf 87`)
    if got := p["bbox"]; len(got) != 4 || got[3] != "4" {
        t.Fatalf("bbox: %v", got)
    }
    if c, ok := titleFloat(`bbox 1 2 3 4; x_wconf 87`, "x_wconf"); !ok || c != 87 {
        t.Fatalf("x_wconf: %v %v", c, ok)
    }
    if _, ok := titleFloat(`bbox 1 2 3 4`, "x_wconf"); ok {
        t.Fatalf("missing key must report false")
    }
}

func TestCollapseSpaces(t *testing.T) {
    if got := normalizeWhitespace("  a \n\t b  "); got != "a b" {
        t.Fatalf("got %q", got)
    }
}
