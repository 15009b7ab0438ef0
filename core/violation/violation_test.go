package violation

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Kind
		wantErr bool
	}{
		{name: "exact", in: "tab_switch", want: TabSwitch},
		{name: "case and spaces", in: "  Copy_Paste ", want: CopyPaste},
		{name: "developer tools", in: "developer_tools", want: DeveloperTools},
		{name: "empty", in: "", wantErr: true},
		{name: "unknown", in: "screen_share", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrUnknownKind, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogIsClosed(t *testing.T) {
	all := All()
	assert.Len(t, all, 7)
	for _, k := range all {
		assert.True(t, k.Valid(), k)
		assert.NotEmpty(t, k.Signal(), k)
	}
	assert.False(t, Kind("lol").Valid())
}
