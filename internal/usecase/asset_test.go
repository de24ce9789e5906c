package usecase

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageURL(t *testing.T) {
	tests := []struct {
		name    string
		ownerID string
		want    string
	}{
		{name: "plain", ownerID: "c1", want: "/images/job/c1/a.jpg"},
		{name: "space", ownerID: "c 1", want: "/images/job/c%201/a.jpg"},
		{name: "query and fragment", ownerID: "c?1#x", want: "/images/job/c%3F1%23x/a.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ImageURL(OwnerJob, tt.ownerID, "a.jpg")
			assert.Equal(t, tt.want, got)

			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Empty(t, u.RawQuery)
			assert.Empty(t, u.Fragment)
			assert.Equal(t, "/images/job/"+tt.ownerID+"/a.jpg", u.Path)
		})
	}
}
