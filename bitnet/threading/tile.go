// Copyright 2025 The BitNet Authors. SPDX-License-Identifier: MIT

package threading

import "sync/atomic"

// Tile is a rectangular work unit over a 2D extent. Row and column ranges
// are half-open. ID is the tile's position in row-major construction order.
type Tile struct {
	RowStart, RowEnd int
	ColStart, ColEnd int
	ID               int
}

// Rows returns the tile's row count.
func (t Tile) Rows() int { return t.RowEnd - t.RowStart }

// Cols returns the tile's column count.
func (t Tile) Cols() int { return t.ColEnd - t.ColStart }

// TileDistributor shares a precomputed list of tiles between concurrently
// running tasks. The tile list is built once at construction, in row-major
// order, with the trailing row/column tiles clipped to the extent (never
// padded). Next hands out each tile exactly once using a single atomic
// cursor; no other coordination exists. Delivery order is construction
// order, completion order is up to the callers.
type TileDistributor struct {
	tiles []Tile
	next  atomic.Int64
}

// NewTileDistributor covers a rows×cols extent with tileSize×tileSize tiles.
func NewTileDistributor(rows, cols, tileSize int) *TileDistributor {
	rowTiles := (rows + tileSize - 1) / tileSize
	colTiles := (cols + tileSize - 1) / tileSize

	tiles := make([]Tile, 0, rowTiles*colTiles)
	for i := 0; i < rowTiles; i++ {
		for j := 0; j < colTiles; j++ {
			tiles = append(tiles, Tile{
				RowStart: i * tileSize,
				RowEnd:   min((i+1)*tileSize, rows),
				ColStart: j * tileSize,
				ColEnd:   min((j+1)*tileSize, cols),
				ID:       i*colTiles + j,
			})
		}
	}
	return &TileDistributor{tiles: tiles}
}

// Next returns the next undelivered tile. ok is false once every tile has
// been handed out. Safe for concurrent use.
func (d *TileDistributor) Next() (tile Tile, ok bool) {
	idx := d.next.Add(1) - 1
	if idx >= int64(len(d.tiles)) {
		return Tile{}, false
	}
	return d.tiles[idx], true
}

// TotalTiles returns the number of tiles covering the extent.
func (d *TileDistributor) TotalTiles() int {
	return len(d.tiles)
}
