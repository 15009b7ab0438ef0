package exam

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examguard/core"
)

func TestInitValidators(t *testing.T) {
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	type report struct {
		Kind   string `json:"kind" validate:"violationkind"`
		Reason string `json:"reason" validate:"omitempty,endreason"`
	}
	tests := []struct {
		name    string
		data    report
		wantErr map[string]string
	}{
		{name: "valid", data: report{Kind: "developer_tools", Reason: "time_expired"}},
		{name: "no reason", data: report{Kind: "tab_switch"}},
		{
			name: "unknown kind",
			data: report{Kind: "sneezing"},
			wantErr: map[string]string{
				"kind": "kind must be one of tab_switch, window_blur, context_menu, copy_paste, fullscreen_exit, developer_tools, suspicious_activity",
			},
		},
		{
			name:    "server-only reason",
			data:    report{Kind: "window_blur", Reason: string(EndReasonViolationLimit)},
			wantErr: map[string]string{"reason": "reason must be one of manual, time_expired"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.wantErr, core.TranslateValidationErrors(vErrs, translator))
		})
	}
}
