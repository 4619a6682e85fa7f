package files

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Barcode is a decoded barcode or QR code.
type Barcode struct {
	Data   string
	Format string
}

// scanBarcodes tries QR first, then 1D formats. Decoding is best effort:
// any failure yields an empty slice, never an error.
func scanBarcodes(fileBytes []byte) []Barcode {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("barcode scan panicked", "recovered", r)
		}
	}()

	img, _, err := image.Decode(bytes.NewReader(fileBytes))
	if err != nil {
		return nil
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}

	readers := []gozxing.Reader{
		qrcode.NewQRCodeReader(),
		oned.NewMultiFormatUPCEANReader(hints),
	}

	var found []Barcode
	for _, reader := range readers {
		result, err := reader.Decode(bmp, hints)
		if err != nil || result == nil {
			continue
		}
		text := result.GetText()
		if text == "" {
			continue
		}
		found = append(found, Barcode{
			Data:   text,
			Format: result.GetBarcodeFormat().String(),
		})
	}
	return found
}
