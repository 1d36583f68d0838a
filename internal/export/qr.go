package export

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize is the PNG edge length used when no size is requested.
const DefaultQRSize = 256

// QRCode encodes text as a PNG QR code of size×size pixels. Low error
// correction leaves the most room for long shopping lists.
func QRCode(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(text, qrcode.Low, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
