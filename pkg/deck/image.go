// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import (
	"fmt"
	"log"
)

// Bitmap is a 1-bit-per-pixel image in its logical orientation. Rows are
// packed MSB first and padded to whole bytes, matching what the renderer
// hands over. The session rotates it 180 degrees on transmission, which the
// display firmware requires.
type Bitmap struct {
	Width  int
	Height int
	Bits   []byte
}

// NewBitmap allocates an all-zero bitmap.
func NewBitmap(w, h int) Bitmap {
	return Bitmap{Width: w, Height: h, Bits: make([]byte, ((w+7)/8)*h)}
}

func (b Bitmap) rowBytes() int {
	return (b.Width + 7) / 8
}

// Get reports the pixel at (x, y).
func (b Bitmap) Get(x, y int) bool {
	idx := y*b.rowBytes() + x/8
	return b.Bits[idx]&(0x80>>uint(x%8)) != 0
}

// Set sets the pixel at (x, y).
func (b Bitmap) Set(x, y int, on bool) {
	idx := y*b.rowBytes() + x/8
	mask := byte(0x80 >> uint(x%8))
	if on {
		b.Bits[idx] |= mask
	} else {
		b.Bits[idx] &^= mask
	}
}

// Rotate180 returns the bitmap rotated half a turn. The operation is its
// own inverse, so region resends yield byte-identical payloads.
func (b Bitmap) Rotate180() Bitmap {
	out := NewBitmap(b.Width, b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.Get(x, y) {
				out.Set(b.Width-1-x, b.Height-1-y, true)
			}
		}
	}
	return out
}

// ImageRegion is one buffered display update: the target rectangle and the
// bitmap in logical orientation.
type ImageRegion struct {
	X, Y   int
	Bitmap Bitmap
}

// Slot addresses a logical display area: SlotTitle for the title banner,
// 1 for the jog dial label, 2-5 down the left column and 6-9 down the right.
type Slot int

// SlotTitle is the vertical title banner between the two button columns.
const SlotTitle Slot = 0

// AreaFor returns the display rectangle for a slot. The display is mounted
// sideways, so the title and jog label areas swap width and height relative
// to their on-screen appearance.
func (c Capabilities) AreaFor(slot Slot) (x, y, w, h int) {
	bannerSpace := c.BannerHeight / 2
	tileHeight := c.DisplayHeight / 4
	tileWidth := c.DisplayWidth/2 - bannerSpace

	switch {
	case slot == SlotTitle:
		// The firmware hangs on title updates narrower than 40 pixels.
		return tileWidth, 0, 40, c.DisplayHeight
	case slot == 1:
		return 0, tileWidth, c.DisplayHeight, c.DisplayWidth/2 + c.BannerHeight
	case slot <= 5:
		return tileWidth + c.BannerHeight, (5 - int(slot)) * tileHeight, tileWidth + 2, tileHeight
	default:
		return 0, (9 - int(slot)) * tileHeight, tileWidth + 2, tileHeight
	}
}

// SendImage queues the region for refresh recovery and transmits it: a
// display header with the target rectangle, then the rotated pixel data in
// chunks. The caller is responsible for a subsequent UpdateDisplay.
func (d *Device) SendImage(x, y int, bm Bitmap) error {
	if d.transport == nil {
		return ErrNotConnected
	}
	if d.Debug {
		log.Printf("SendImage(%d, %d) %dx%d", x, y, bm.Width, bm.Height)
	}
	d.imageBuffer = append(d.imageBuffer, ImageRegion{X: x, Y: y, Bitmap: bm})
	return d.transmitRegion(ImageRegion{X: x, Y: y, Bitmap: bm})
}

// SendImageFor transmits a bitmap into the display area of a slot. The
// bitmap must already be rendered at the slot's dimensions.
func (d *Device) SendImageFor(slot Slot, bm Bitmap) error {
	x, y, w, h := d.Capabilities.AreaFor(slot)
	if bm.Width != w || bm.Height != h {
		return fmt.Errorf("bitmap is %dx%d, slot %d wants %dx%d", bm.Width, bm.Height, slot, w, h)
	}
	return d.SendImage(x, y, bm)
}

func (d *Device) transmitRegion(r ImageRegion) error {
	header := fmt.Sprintf("%s %d %d %d %d", CmdDisplay, r.X, r.Y, r.Bitmap.Width, r.Bitmap.Height)
	if err := d.transport.WriteLine(header); err != nil {
		return err
	}
	return d.transport.WriteChunked(r.Bitmap.Rotate180().Bits)
}

// resendImageData replays every buffered region in insertion order so the
// firmware can rebuild its persistent frame memory after a buffered refresh.
func (d *Device) resendImageData() error {
	if d.Debug {
		log.Printf("resendImageData: %d regions", len(d.imageBuffer))
	}
	for _, r := range d.imageBuffer {
		if err := d.transmitRegion(r); err != nil {
			return err
		}
	}
	return nil
}
