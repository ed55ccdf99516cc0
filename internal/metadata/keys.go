package metadata

import (
	"fmt"
	"net/url"
)

// DecodeKey percent-decodes an object identifier. "+" decodes to a space, matching how
// storage notifications encode keys.
func DecodeKey(raw string) (string, error) {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return key, nil
}
