package v1

import "testing"

func TestPhotoExtension(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
		ok          bool
	}{
		{"image/jpeg", "jpg", true},
		{"IMAGE/PNG", "png", true},
		{"image/webp; charset=binary", "webp", true},
		{" image/heic ", "heic", true},
		{"image/gif", "", false},
		{"application/pdf", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := PhotoExtension(tt.contentType)
		if got != tt.want || ok != tt.ok {
			t.Errorf("PhotoExtension(%q) = %q, %v; want %q, %v", tt.contentType, got, ok, tt.want, tt.ok)
		}
	}
}
