package wiki

import (
	"errors"
	"testing"

	"lendingops/internal/telemetry"

	"github.com/stretchr/testify/require"
)

const releaseNote = `
<p>Line of Credit release note</p>
<h1>Revolving loan - KTB</h1>
<p>deployed versions</p>
<div class="table-wrap"><table data-layout="default"><tbody>
<tr><th><p>Env</p></th><th><p>Supervisor Version</p></th><th><p>LOC Version</p></th><th><p>Drawdown Version</p></th></tr>
<tr><td><p>DEV</p></td><td>sup-ktb-dev</td><td>loc-ktb-dev</td><td>dd-ktb-dev</td></tr>
<tr><td><p>SIT</p></td><td><span>sup-ktb-sit</span></td><td>loc-ktb-sit</td><td>dd-ktb-sit</td></tr>
</tbody></table></div>
<h1>Revolving loan - VB</h1>
<table><tbody>
<tr><th>Env</th><th>Supervisor Version</th><th>LOC Version</th><th>Drawdown Version</th></tr>
<tr><td>SIT</td><td>sup-vb-sit-1</td><td>loc-vb-sit-1</td><td>dd-vb-sit-1</td></tr>
<tr><td>SIT (hotfix)</td><td>sup-vb-sit-2</td><td>loc-vb-sit-2</td><td>dd-vb-sit-2</td></tr>
<tr><td>UAT</td><td>sup-vb-uat</td><td>loc-vb-uat</td></tr>
</tbody></table>
`

func TestExtractReleaseTable(t *testing.T) {
	table := []struct {
		name        string
		institution string
		env         string
		expected    map[string]string
		ambiguous   bool
	}{
		{
			name:        "nested table and cell markup",
			institution: "ktb",
			env:         "sit",
			expected: map[string]string{
				"Env":                "SIT",
				"Supervisor Version": "sup-ktb-sit",
				"LOC Version":        "loc-ktb-sit",
				"Drawdown Version":   "dd-ktb-sit",
			},
		},
		{
			name:        "several matching rows take the first",
			institution: "vb",
			env:         "sit",
			expected: map[string]string{
				"Env":                "SIT",
				"Supervisor Version": "sup-vb-sit-1",
				"LOC Version":        "loc-vb-sit-1",
				"Drawdown Version":   "dd-vb-sit-1",
			},
			ambiguous: true,
		},
		{
			name:        "short row leaves missing columns out",
			institution: "VB",
			env:         "uat",
			expected: map[string]string{
				"Env":                "UAT",
				"Supervisor Version": "sup-vb-uat",
				"LOC Version":        "loc-vb-uat",
			},
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			rec := &telemetry.Recorder{}
			result, err := ExtractReleaseTable(rec, releaseNote, row.institution, row.env)
			require.NoError(t, err)
			require.Equal(t, row.expected, result.Map())
			require.Equal(t, row.ambiguous, len(rec.Find(telemetry.KindWarning, "ambiguous-row")) > 0)
		})
	}
}

func TestExtractReleaseTableMissing(t *testing.T) {
	rec := &telemetry.Recorder{}

	_, err := ExtractReleaseTable(rec, releaseNote, "ktb", "prod")
	require.True(t, errors.Is(err, ErrRowNotFound))

	_, err = ExtractReleaseTable(rec, releaseNote, "abc", "sit")
	require.True(t, errors.Is(err, ErrSectionNotFound))

	_, err = ExtractReleaseTable(rec, "<h1>Revolving loan - KTB</h1><p>no table yet</p>", "ktb", "sit")
	require.True(t, errors.Is(err, ErrSectionNotFound))
}

func TestReleaseTableValue(t *testing.T) {
	table := ReleaseTable{
		Header: []string{"Env", "Supervisor  Version", "loc version", ""},
		Row:    []string{"SIT", "sup-1", "loc-1", "ignored"},
	}

	require.Equal(t, "sup-1", table.Value("Supervisor Version"))
	require.Equal(t, "loc-1", table.Value("LOC Version"))
	require.Equal(t, "", table.Value("Drawdown Version"))
}
