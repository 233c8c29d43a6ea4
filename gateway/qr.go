package gateway

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// renderQR encodes content as a base64 PNG, the shape guests' browsers display inline.
func renderQR(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
