package sprite

import (
	"context"
	"encoding/binary"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bodgit/tamarom/buffer"
)

const testBase = 8

// testPackage builds a minimal two image package at offset 8: two 8x8
// 2bpp tiles, a four colour palette, and both tiles drawn from index
// pattern 1, 2, 0, 0, ...
func testPackage(t *testing.T) *buffer.Buffer {
	t.Helper()

	const (
		imgOff = 16
		sprOff = imgOff + 2*imageDefSize
		palOff = sprOff + 2*spriteDefSize
		chrOff = palOff + 4*2
	)

	b := make([]byte, testBase+chrOff+2*16)

	binary.LittleEndian.PutUint32(b[testBase:], imgOff)
	binary.LittleEndian.PutUint32(b[testBase+4:], sprOff)
	binary.LittleEndian.PutUint32(b[testBase+8:], palOff)
	binary.LittleEndian.PutUint32(b[testBase+12:], chrOff)

	putImage := func(i int, start uint16, w, h uint8, pal uint16) {
		o := testBase + imgOff + i*imageDefSize
		binary.LittleEndian.PutUint16(b[o:], start)
		b[o+2], b[o+3] = w, h
		binary.LittleEndian.PutUint16(b[o+4:], pal)
	}
	putImage(0, 0, 1, 1, 0)
	putImage(1, 1, 1, 1, 0)

	putSprite := func(i int, ch uint16, x, y int16, attr uint16) {
		o := testBase + sprOff + i*spriteDefSize
		binary.LittleEndian.PutUint16(b[o:], ch)
		binary.LittleEndian.PutUint16(b[o+2:], uint16(x))
		binary.LittleEndian.PutUint16(b[o+4:], uint16(y))
		binary.LittleEndian.PutUint16(b[o+6:], attr)
	}
	putSprite(0, 0, 0, 0, 0x0000)
	putSprite(1, 1, 0, 0, 0x0004) // horizontal flip

	for i, w := range []uint16{0x0000, 0xffff, 0xfc00, 0x83e0} {
		binary.LittleEndian.PutUint16(b[testBase+palOff+i*2:], w)
	}

	// both tiles: pixel 0 is colour 1, pixel 1 is colour 2, rest colour 0
	b[testBase+chrOff] = 0x60
	b[testBase+chrOff+16] = 0x60

	return buffer.New(b)
}

func testLocate(t *testing.T, buf *buffer.Buffer) Package {
	t.Helper()

	pkg, ok := Locate(context.Background(), buf, LocateOptions{
		MinImages: 2, MaxImages: 10, MinColors: 4, BaseOffset: -1,
	})
	assert.True(t, ok)
	return pkg
}

func TestLocate(t *testing.T) {
	pkg := testLocate(t, testPackage(t))

	assert.Equal(t, testBase, pkg.Base)
	assert.Len(t, pkg.Images, 2)
	assert.Len(t, pkg.Sprites, 2)
	assert.Equal(t, []uint16{0x0000, 0xffff, 0xfc00, 0x83e0}, pkg.Palette)
	assert.Equal(t, ImageDef{SpriteStart: 1, Width: 1, Height: 1}, pkg.Images[1])
}

func TestLocateRejectsCorruptHeader(t *testing.T) {
	buf := testPackage(t)
	b := buf.Bytes()
	b[testBase+4] = 0xff // sprite defs offset past the palette offset

	_, ok := Locate(context.Background(), buf, LocateOptions{
		MinImages: 2, MaxImages: 10, MinColors: 4, BaseOffset: -1,
	})
	assert.False(t, ok)
}

func TestLocateFixedBase(t *testing.T) {
	pkg, ok := Locate(context.Background(), testPackage(t), LocateOptions{BaseOffset: testBase})
	assert.True(t, ok)
	assert.Len(t, pkg.Images, 2)
}

func TestAttribute(t *testing.T) {
	a := Attribute(0x0395) // 4bpp, hflip, 16 wide, 32 high, bank 3

	assert.Equal(t, 4, a.Depth())
	assert.Equal(t, 16, a.Colors())
	assert.True(t, a.FlipH())
	assert.False(t, a.FlipV())
	assert.Equal(t, 16, a.Width())
	assert.Equal(t, 32, a.Height())
	assert.Equal(t, 3, a.Bank())
	assert.Equal(t, 7, a.WithBank(7).Bank())
	assert.Equal(t, 4, a.WithBank(7).Depth())
}

func TestPackUnpack(t *testing.T) {
	indices := []uint8{1, 2, 3, 0, 2, 1, 0, 3, 1}

	packed := Pack(indices, 2)
	assert.Equal(t, []byte{0x6c, 0x93, 0x40}, packed)
	assert.Equal(t, indices, Unpack(packed, 3, 3, 2))
}

func TestUnpackShortInput(t *testing.T) {
	got := Unpack([]byte{0xff}, 4, 2, 2)
	assert.Equal(t, []uint8{3, 3, 3, 3, 0, 0, 0, 0}, got)
}

func TestPaletteWords(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, FromWord(0xffff, false))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, FromWord(0xfc00, false))
	assert.Equal(t, color.RGBA{}, FromWord(0x0000, false))
	assert.Equal(t, color.RGBA{A: 255}, FromWord(0x0000, true))

	assert.Equal(t, uint16(0xffff), ToWord(color.RGBA{R: 255, G: 255, B: 255, A: 255}, false))
	assert.Equal(t, uint16(0x7fff), ToWord(color.RGBA{R: 255, G: 255, B: 255, A: 255}, true))
	assert.Equal(t, uint16(0x8000), ToWord(color.RGBA{A: 255}, false))
}

func TestCompose(t *testing.T) {
	pkg := testLocate(t, testPackage(t))

	frame, err := pkg.Compose(0, 0, 0, ComposeOptions{})
	assert.Nil(t, err)
	assert.Equal(t, 8, frame.Bounds().Dx())
	assert.Equal(t, 8, frame.Bounds().Dy())

	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, frame.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, frame.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{}, frame.RGBAAt(2, 0))
}

func TestComposeFlipped(t *testing.T) {
	pkg := testLocate(t, testPackage(t))

	frame, err := pkg.Compose(1, 0, 0, ComposeOptions{})
	assert.Nil(t, err)

	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, frame.RGBAAt(7, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, frame.RGBAAt(6, 0))
	assert.Equal(t, color.RGBA{}, frame.RGBAAt(0, 0))
}

func TestComposeOutOfRange(t *testing.T) {
	pkg := testLocate(t, testPackage(t))

	_, err := pkg.Compose(5, 0, 0, ComposeOptions{})
	assert.NotNil(t, err)
	_, err = pkg.Compose(0, 3, 0, ComposeOptions{})
	assert.NotNil(t, err)
}

func TestReplaceRoundTrip(t *testing.T) {
	pkg := testLocate(t, testPackage(t))

	frame, err := pkg.Compose(0, 0, 0, ComposeOptions{})
	assert.Nil(t, err)

	patches, err := pkg.Replace(0, 0, 0, frame, ComposeOptions{})
	assert.Nil(t, err)
	assert.Len(t, patches, 1)

	want := make([]byte, 16)
	want[0] = 0x60
	assert.Equal(t, pkg.CharOffset(pkg.Sprites[0]), patches[0].Offset)
	assert.Equal(t, want, patches[0].Data)
}

func TestReplaceWrongSize(t *testing.T) {
	pkg := testLocate(t, testPackage(t))

	frame, err := pkg.Compose(0, 0, 0, ComposeOptions{})
	assert.Nil(t, err)

	_, err = pkg.Replace(0, 0, 0, frame.SubImage(frame.Bounds().Inset(1)), ComposeOptions{})
	assert.NotNil(t, err)
}

func TestBankPatch(t *testing.T) {
	pkg := testLocate(t, testPackage(t))

	frame, err := pkg.Compose(0, 0, 0, ComposeOptions{})
	assert.Nil(t, err)

	patches, err := pkg.BankPatch(0, 0, 0, frame, AlphaNormal, true)
	assert.Nil(t, err)
	assert.Len(t, patches, 2)

	// scan order: white, red, then transparent padded to four entries
	pal := patches[0]
	assert.Equal(t, pkg.paletteWordOffset(0), pal.Offset)
	assert.Equal(t, uint16(0xffff), binary.LittleEndian.Uint16(pal.Data[0:]))
	assert.Equal(t, uint16(0xfc00), binary.LittleEndian.Uint16(pal.Data[2:]))
	assert.Equal(t, uint16(0x0000), binary.LittleEndian.Uint16(pal.Data[4:]))
	assert.Equal(t, uint16(0x0000), binary.LittleEndian.Uint16(pal.Data[6:]))

	assert.Equal(t, pkg.attrOffset(0), patches[1].Offset)
}

func TestFreeBank(t *testing.T) {
	pkg := testLocate(t, testPackage(t))

	// both sprites sit on bank 0
	assert.Equal(t, 1, pkg.FreeBank(0))
}

func TestSubImages(t *testing.T) {
	pkg := testLocate(t, testPackage(t))

	assert.Equal(t, 1, pkg.SpritesPerSub(0))
	assert.Equal(t, 1, pkg.SubImages(0))
	assert.Equal(t, 1, pkg.SubImages(1))
}
