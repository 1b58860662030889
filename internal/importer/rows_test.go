package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRows(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "simple",
			input: "a,b,c\n1,2,3\n",
			want:  [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name:  "crlf and trimming",
			input: " a , b \r\n1,  2\r\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "quoted comma and escaped quote",
			input: `"HYDRO, BILL","say ""hi"""` + "\n",
			want:  [][]string{{"HYDRO, BILL", `say "hi"`}},
		},
		{
			name:  "newline inside quotes",
			input: "\"line one\nline two\",x\n",
			want:  [][]string{{"line one\nline two", "x"}},
		},
		{
			name:  "blank rows dropped",
			input: "a,b\n\n , \n,,\n1,2\n\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "unterminated quote runs to end",
			input: "a,\"b,c\nd",
			want:  [][]string{{"a", "b,c\nd"}},
		},
		{
			name:  "spaces around a quoted field",
			input: ` "a,b" ,c` + "\n",
			want:  [][]string{{"a,b", "c"}},
		},
		{
			name:  "space after closing quote",
			input: `"a" ,b` + "\n",
			want:  [][]string{{"a", "b"}},
		},
		{
			name:  "space before opening quote",
			input: "a, \"b,c\",d",
			want:  [][]string{{"a", "b,c", "d"}},
		},
		{
			name:  "rows after a padded quoted field survive",
			input: "h1,h2\n\"x, y\" ,1\r\nz,2\n",
			want:  [][]string{{"h1", "h2"}, {"x, y", "1"}, {"z", "2"}},
		},
		{
			name:  "ragged rows",
			input: "a,b,c\n1\n",
			want:  [][]string{{"a", "b", "c"}, {"1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRows(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRows_Empty(t *testing.T) {
	got, err := ParseRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
