package rle

import (
	"bytes"
	"fmt"
)

// ExampleDecode decodes a two pixel image with an alpha channel.
func ExampleDecode() {
	data := []byte{
		2, 0, 0, 0, // width
		1, 0, 0, 0, // height
		1,                  // has alpha
		2, 255, 10, 20, 30, // two pixels of a=255 b=10 g=20 r=30
	}
	img, err := Decode(bytes.NewReader(data), nil)
	if err != nil {
		fmt.Printf("failed to decode: %s", err)
		return
	}
	fmt.Printf("image: %dx%d\n", img.Bounds().Dx(), img.Bounds().Dy())
	fmt.Println(img.NRGBAAt(1, 0))
	// Output:
	// image: 2x1
	// {30 20 10 255}
}
