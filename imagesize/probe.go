// Package imagesize reads intrinsic image dimensions from file headers
// without decoding pixel data.
package imagesize

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"net/url"
	"strings"
)

// Dimensions is the intrinsic size of an image in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both sides are positive.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	gif87a       = []byte("GIF87a")
	gif89a       = []byte("GIF89a")
)

// Probe identifies a PNG, GIF, WEBP or JPEG header in b and returns its
// dimensions. It reports false for any other or truncated input.
func Probe(b []byte) (Dimensions, bool) {
	var d Dimensions
	var ok bool
	switch {
	case bytes.HasPrefix(b, pngSignature):
		d, ok = probePNG(b)
	case bytes.HasPrefix(b, gif87a), bytes.HasPrefix(b, gif89a):
		d, ok = probeGIF(b)
	case len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP":
		d, ok = probeWEBP(b)
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8:
		d, ok = probeJPEG(b)
	}
	if !ok || !d.Valid() {
		return Dimensions{}, false
	}
	return d, true
}

func probePNG(b []byte) (Dimensions, bool) {
	if len(b) < 24 {
		return Dimensions{}, false
	}
	return Dimensions{
		Width:  int(binary.BigEndian.Uint32(b[16:20])),
		Height: int(binary.BigEndian.Uint32(b[20:24])),
	}, true
}

func probeGIF(b []byte) (Dimensions, bool) {
	if len(b) < 10 {
		return Dimensions{}, false
	}
	return Dimensions{
		Width:  int(binary.LittleEndian.Uint16(b[6:8])),
		Height: int(binary.LittleEndian.Uint16(b[8:10])),
	}, true
}

func le24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

func probeWEBP(b []byte) (Dimensions, bool) {
	if len(b) < 16 {
		return Dimensions{}, false
	}
	switch string(b[12:16]) {
	case "VP8X":
		if len(b) < 30 {
			return Dimensions{}, false
		}
		return Dimensions{Width: le24(b[24:27]) + 1, Height: le24(b[27:30]) + 1}, true
	case "VP8 ":
		if len(b) < 30 {
			return Dimensions{}, false
		}
		return Dimensions{
			Width:  int(binary.LittleEndian.Uint16(b[26:28]) & 0x3FFF),
			Height: int(binary.LittleEndian.Uint16(b[28:30]) & 0x3FFF),
		}, true
	case "VP8L":
		if len(b) < 25 || b[20] != 0x2F {
			return Dimensions{}, false
		}
		bits := binary.LittleEndian.Uint32(b[21:25])
		return Dimensions{
			Width:  int(bits&0x3FFF) + 1,
			Height: int((bits>>14)&0x3FFF) + 1,
		}, true
	}
	return Dimensions{}, false
}

func isSOF(marker byte) bool {
	switch marker {
	case 0xC0, 0xC1, 0xC2, 0xC3,
		0xC5, 0xC6, 0xC7,
		0xC9, 0xCA, 0xCB,
		0xCD, 0xCE, 0xCF:
		return true
	}
	return false
}

// probeJPEG walks the marker segments after SOI until a start-of-frame.
// Reaching start-of-scan or end-of-image first means no size is available.
func probeJPEG(b []byte) (Dimensions, bool) {
	i := 2
	for i < len(b) {
		if b[i] != 0xFF {
			return Dimensions{}, false
		}
		for i < len(b) && b[i] == 0xFF {
			i++
		}
		if i >= len(b) {
			return Dimensions{}, false
		}
		marker := b[i]
		i++
		switch {
		case marker == 0xD8, marker == 0x01, marker >= 0xD0 && marker <= 0xD7:
			continue
		case marker == 0xDA, marker == 0xD9:
			return Dimensions{}, false
		}
		if i+2 > len(b) {
			return Dimensions{}, false
		}
		length := int(binary.BigEndian.Uint16(b[i : i+2]))
		if length < 2 {
			return Dimensions{}, false
		}
		if isSOF(marker) {
			if i+7 > len(b) {
				return Dimensions{}, false
			}
			return Dimensions{
				Height: int(binary.BigEndian.Uint16(b[i+3 : i+5])),
				Width:  int(binary.BigEndian.Uint16(b[i+5 : i+7])),
			}, true
		}
		i += length
	}
	return Dimensions{}, false
}

// maxDataURIBytes bounds how much of a base64 payload is decoded.
const maxDataURIBytes = 64 << 10

// ProbeDataURI probes the payload of a base64 data:image URI.
func ProbeDataURI(uri string) (Dimensions, bool) {
	rest, ok := cutPrefixFold(uri, "data:")
	if !ok {
		return Dimensions{}, false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Dimensions{}, false
	}
	if !strings.HasSuffix(strings.ToLower(meta), ";base64") {
		raw, err := url.PathUnescape(payload)
		if err != nil {
			return Dimensions{}, false
		}
		return Probe([]byte(raw))
	}
	// Decode a whole number of 4-byte quanta from the front of the payload.
	n := min(len(payload), maxDataURIBytes/3*4)
	n -= n % 4
	data, err := base64.StdEncoding.DecodeString(payload[:n])
	if err != nil {
		return Dimensions{}, false
	}
	return Probe(data)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
