// Package render produces PNG snapshots of a position. The checkered board
// is generated as SVG and rasterized; glyphs and coordinates are drawn with a
// bitmap font on top.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	squareSize   = 48
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	margin       = 20
	totalSize    = boardSize + margin*2
)

var (
	lightSquare    = "#e9cfa3"
	darkSquare     = "#bb8860"
	canvasColor    = color.RGBA{24, 26, 36, 255}
	coordinateText = color.NRGBA{R: 212, G: 216, B: 232, A: 255}
)

// PNG renders the position in fen as a PNG image.
func PNG(fen string) ([]byte, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}
	board := nchess.NewGame(opt).Position().Board()

	boardImg, err := rasterizeBoard()
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, totalSize, totalSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(canvasColor), image.Point{}, draw.Src)
	boardRect := image.Rect(margin, margin, margin+boardSize, margin+boardSize)
	draw.Draw(img, boardRect, boardImg, image.Point{}, draw.Over)

	drawPieces(img, board)
	drawCoordinates(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// rasterizeBoard renders the 8×8 checker pattern from generated SVG.
func rasterizeBoard() (image.Image, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		boardSize, boardSize, boardSize, boardSize)
	for rank := 0; rank < boardSquares; rank++ {
		for file := 0; file < boardSquares; file++ {
			fill := lightSquare
			if (rank+file)%2 == 1 {
				fill = darkSquare
			}
			fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				file*squareSize, rank*squareSize, squareSize, squareSize, fill)
		}
	}
	sb.WriteString(`</svg>`)

	icon, err := oksvg.ReadIconStream(strings.NewReader(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(boardSize), float64(boardSize))

	img := image.NewRGBA(image.Rect(0, 0, boardSize, boardSize))
	scanner := rasterx.NewScannerGV(boardSize, boardSize, img, img.Bounds())
	raster := rasterx.NewDasher(boardSize, boardSize, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

func drawPieces(img *image.RGBA, board *nchess.Board) {
	for sq, piece := range board.SquareMap() {
		file := int(sq.File())
		rank := int(sq.Rank())
		x := margin + file*squareSize + squareSize/2 - 3
		y := margin + (boardSquares-1-rank)*squareSize + squareSize/2 + 5

		letter := pieceLetter(piece)
		if piece.Color() == nchess.White {
			drawString(img, letter, x+1, y+1, color.NRGBA{0, 0, 0, 200})
			drawString(img, letter, x, y, color.NRGBA{255, 255, 255, 255})
		} else {
			drawString(img, letter, x+1, y+1, color.NRGBA{255, 255, 255, 160})
			drawString(img, letter, x, y, color.NRGBA{10, 10, 10, 255})
		}
	}
}

func drawCoordinates(img *image.RGBA) {
	for i := 0; i < boardSquares; i++ {
		fileLabel := string(rune('a' + i))
		drawString(img, fileLabel, margin+i*squareSize+squareSize/2-3, totalSize-6, coordinateText)
		rankLabel := string(rune('8' - i))
		drawString(img, rankLabel, 6, margin+i*squareSize+squareSize/2+4, coordinateText)
	}
}

func drawString(img *image.RGBA, s string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func pieceLetter(piece nchess.Piece) string {
	var letter string
	switch piece.Type() {
	case nchess.King:
		letter = "K"
	case nchess.Queen:
		letter = "Q"
	case nchess.Rook:
		letter = "R"
	case nchess.Bishop:
		letter = "B"
	case nchess.Knight:
		letter = "N"
	case nchess.Pawn:
		letter = "P"
	}
	if piece.Color() == nchess.Black {
		letter = strings.ToLower(letter)
	}
	return letter
}
