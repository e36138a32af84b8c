package validation

import (
	"encoding/base64"
	"errors"
	"net/http"
)

const MaxAvatarBytes = 2 * 1024 * 1024

var (
	ErrAvatarTooLarge    = errors.New("File size too big (max 2MB)")
	ErrAvatarUnsupported = errors.New("File type not supported (.png or .jpg only)")
)

// AvatarDataURL checks an uploaded picture and returns it as the data URL
// stored in the user's image field. Only PNG and JPEG up to 2MB pass.
func AvatarDataURL(content []byte) (string, error) {
	if len(content) > MaxAvatarBytes {
		return "", ErrAvatarTooLarge
	}
	mime := http.DetectContentType(content)
	switch mime {
	case "image/png", "image/jpeg":
	default:
		return "", ErrAvatarUnsupported
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content), nil
}
