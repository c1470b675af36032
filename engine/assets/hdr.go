package assets

import (
	"bufio"
	"fmt"
	"io"
	gomath "math"
	"os"
	"strings"

	"github.com/spaghettifunk/lumen/engine/resources"
)

// LoadHDR decodes a Radiance RGBE (.hdr) file into linear RGBA float pixels.
// The Go image ecosystem has no HDR decoder, so the format is parsed here;
// both flat and new-style RLE scanlines are handled.
func LoadHDR(path string) (*resources.ImageData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open HDR %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	magic, err := readHDRLine(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if magic != "#?RADIANCE" && magic != "#?RGBE" {
		return nil, fmt.Errorf("%s is not a Radiance HDR file", path)
	}

	formatSeen := false
	for {
		line, err := readHDRLine(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if line == "" {
			break // end of header
		}
		if strings.HasPrefix(line, "FORMAT=") {
			if line != "FORMAT=32-bit_rle_rgbe" {
				return nil, fmt.Errorf("%s: unsupported format %q", path, line)
			}
			formatSeen = true
		}
	}
	if !formatSeen {
		return nil, fmt.Errorf("%s: missing FORMAT header", path)
	}

	var height, width int
	resolution, err := readHDRLine(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if n, err := fmt.Sscanf(resolution, "-Y %d +X %d", &height, &width); n != 2 || err != nil {
		return nil, fmt.Errorf("%s: unsupported resolution line %q", path, resolution)
	}
	if width <= 0 || height <= 0 || width > 1<<15 || height > 1<<15 {
		return nil, fmt.Errorf("%s: unreasonable dimensions %dx%d", path, width, height)
	}

	pixels := make([]float32, width*height*4)
	scanline := make([]byte, width*4)
	for y := 0; y < height; y++ {
		if err := readHDRScanline(r, scanline, width); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, y, err)
		}
		for x := 0; x < width; x++ {
			rgbe := scanline[x*4 : x*4+4]
			out := pixels[(y*width+x)*4:]
			decodeRGBE(rgbe, out)
			out[3] = 1
		}
	}

	return &resources.ImageData{
		ChannelCount: 4,
		Width:        uint32(width),
		Height:       uint32(height),
		PixelsF:      pixels,
	}, nil
}

func readHDRLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readHDRScanline fills dst with interleaved RGBE bytes for one row.
func readHDRScanline(r *bufio.Reader, dst []byte, width int) error {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}

	// New-style RLE rows start with 0x02 0x02 and the width; anything else
	// is a flat row whose first pixel we already consumed.
	if header[0] == 2 && header[1] == 2 && int(header[2])<<8|int(header[3]) == width {
		// Components are stored planar and run-length encoded.
		for c := 0; c < 4; c++ {
			x := 0
			for x < width {
				count, err := r.ReadByte()
				if err != nil {
					return err
				}
				if count > 128 {
					// Run of a repeated value.
					n := int(count) - 128
					if x+n > width {
						return fmt.Errorf("RLE run overflows scanline")
					}
					value, err := r.ReadByte()
					if err != nil {
						return err
					}
					for i := 0; i < n; i++ {
						dst[(x+i)*4+c] = value
					}
					x += n
				} else {
					n := int(count)
					if n == 0 || x+n > width {
						return fmt.Errorf("invalid RLE literal length %d", n)
					}
					for i := 0; i < n; i++ {
						value, err := r.ReadByte()
						if err != nil {
							return err
						}
						dst[(x+i)*4+c] = value
					}
					x += n
				}
			}
		}
		return nil
	}

	copy(dst[0:4], header)
	_, err := io.ReadFull(r, dst[4:width*4])
	return err
}

// decodeRGBE expands a shared-exponent pixel into linear RGB.
func decodeRGBE(rgbe []byte, out []float32) {
	if rgbe[3] == 0 {
		out[0], out[1], out[2] = 0, 0, 0
		return
	}
	scale := float32(gomath.Ldexp(1, int(rgbe[3])-136)) // 2^(e-128) / 256
	out[0] = float32(rgbe[0]) * scale
	out[1] = float32(rgbe[1]) * scale
	out[2] = float32(rgbe[2]) * scale
}
