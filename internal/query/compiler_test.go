package query

import (
	"testing"

	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_FieldQueries_Partial(t *testing.T) {
	req := &models.SearchRequest{
		FieldQueries: map[string]string{"name": "kumar", "circle": "delhi"},
		Logic:        "AND",
		MatchType:    "partial",
	}

	pred, used, err := Compile(req)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"name", "circle"}, used)

	sql, args := pred.SQL()
	assert.Equal(t, "(circle ILIKE ? AND name ILIKE ?)", sql)
	assert.Equal(t, []any{"%delhi%", "%kumar%"}, args)
}

func TestCompile_FieldQueries_FullMatch(t *testing.T) {
	req := &models.SearchRequest{
		FieldQueries: map[string]string{"mobile": "9876543210"},
		MatchType:    "full",
	}

	pred, used, err := Compile(req)

	require.NoError(t, err)
	assert.Equal(t, []string{"mobile"}, used)

	sql, args := pred.SQL()
	assert.Equal(t, "(mobile = ?)", sql)
	assert.Equal(t, []any{"9876543210"}, args)
}

func TestCompile_UnknownFieldsDroppedSilently(t *testing.T) {
	req := &models.SearchRequest{
		FieldQueries: map[string]string{"name": "singh", "ssn": "123-45-6789"},
	}

	pred, used, err := Compile(req)

	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, used)

	sql, _ := pred.SQL()
	assert.Equal(t, "(name ILIKE ?)", sql)
}

func TestCompile_EmptyValuesSkipped(t *testing.T) {
	req := &models.SearchRequest{
		FieldQueries: map[string]string{"name": "  ", "email": ""},
	}

	_, _, err := Compile(req)

	assert.ErrorIs(t, err, models.ErrEmptyCriteria)
}

func TestCompile_LegacyQueryAcrossSuppliedFields(t *testing.T) {
	req := &models.SearchRequest{
		Query:     "sharma",
		Fields:    []string{"name", "fname", "unknown"},
		MatchType: "partial",
	}

	pred, used, err := Compile(req)

	require.NoError(t, err)
	assert.Equal(t, []string{"name", "fname"}, used)

	sql, args := pred.SQL()
	assert.Equal(t, "(name ILIKE ? OR fname ILIKE ?)", sql)
	assert.Equal(t, []any{"%sharma%", "%sharma%"}, args)
}

func TestCompile_LegacyQueryDefaultsToAllStoredFields(t *testing.T) {
	req := &models.SearchRequest{Query: "acme"}

	pred, used, err := Compile(req)

	require.NoError(t, err)
	assert.Equal(t, StoredFields, used)

	sql, args := pred.SQL()
	assert.Equal(t,
		"(mobile ILIKE ? OR name ILIKE ? OR fname ILIKE ? OR address ILIKE ? OR alt ILIKE ? OR circle ILIKE ? OR email ILIKE ? OR master_id ILIKE ?)",
		sql)
	assert.Len(t, args, 8)
}

func TestCompile_EmptyCriteriaRejected(t *testing.T) {
	_, _, err := Compile(&models.SearchRequest{})
	assert.ErrorIs(t, err, models.ErrEmptyCriteria)

	_, _, err = Compile(&models.SearchRequest{Query: "   ", Fields: []string{"name"}})
	assert.ErrorIs(t, err, models.ErrEmptyCriteria)
}

func TestCompile_LogicOperator(t *testing.T) {
	req := &models.SearchRequest{
		FieldQueries: map[string]string{"name": "a", "email": "b"},
	}

	// Anything other than an explicit AND means OR.
	for _, logic := range []string{"", "OR", "or", "XOR", "bogus"} {
		req.Logic = logic
		pred, _, err := Compile(req)
		require.NoError(t, err)
		sql, _ := pred.SQL()
		assert.Equal(t, "(email ILIKE ? OR name ILIKE ?)", sql, "logic=%q", logic)
	}

	req.Logic = "AND"
	pred, _, err := Compile(req)
	require.NoError(t, err)
	sql, _ := pred.SQL()
	assert.Equal(t, "(email ILIKE ? AND name ILIKE ?)", sql)
}

func TestCompile_Pincode(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantSQL  string
		wantArgs []any
		dropped  bool
	}{
		{
			name:     "six digits hits materialized column",
			value:    "110001",
			wantSQL:  "(pincode = ?)",
			wantArgs: []any{"110001"},
		},
		{
			name:     "six digits with separators",
			value:    "110-001",
			wantSQL:  "(pincode = ?)",
			wantArgs: []any{"110001"},
		},
		{
			name:     "five digits falls back to compound address filter",
			value:    "11000",
			wantSQL:  "((address ILIKE ? AND match(address, ?)))",
			wantArgs: []any{"%11000%", "(^|[^0-9])11000([^0-9]|$)"},
		},
		{
			name:     "four digits falls back to compound address filter",
			value:    "1100",
			wantSQL:  "((address ILIKE ? AND match(address, ?)))",
			wantArgs: []any{"%1100%", "(^|[^0-9])1100([^0-9]|$)"},
		},
		{name: "three digits dropped", value: "110", dropped: true},
		{name: "no digits dropped", value: "abc", dropped: true},
		{name: "seven digits dropped", value: "1100011", dropped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.SearchRequest{
				FieldQueries: map[string]string{"pincode": tt.value},
			}
			pred, used, err := Compile(req)
			if tt.dropped {
				assert.ErrorIs(t, err, models.ErrEmptyCriteria)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"pincode"}, used)
			sql, args := pred.SQL()
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCompile_PincodeFullMatchStillSpecialCased(t *testing.T) {
	req := &models.SearchRequest{
		FieldQueries: map[string]string{"pincode": "400001"},
		MatchType:    "full",
	}

	pred, _, err := Compile(req)

	require.NoError(t, err)
	sql, _ := pred.SQL()
	assert.Equal(t, "(pincode = ?)", sql)
}

func TestCompileIncremental_DefaultsToAllFields(t *testing.T) {
	req := &models.SearchWithinRequest{Query: "delhi"}

	pred, err := CompileIncremental(req)

	require.NoError(t, err)
	sql, args := pred.SQL()
	assert.Equal(t,
		"(mobile ILIKE ? OR name ILIKE ? OR fname ILIKE ? OR address ILIKE ? OR alt ILIKE ? OR circle ILIKE ? OR email ILIKE ? OR master_id ILIKE ?)",
		sql)
	assert.Len(t, args, 8)
}

func TestCompileIncremental_EmptyQueryRejected(t *testing.T) {
	_, err := CompileIncremental(&models.SearchWithinRequest{Query: "  "})
	assert.ErrorIs(t, err, models.ErrEmptyCriteria)
}

func TestCompileIncremental_AlwaysOR(t *testing.T) {
	req := &models.SearchWithinRequest{
		Query:  "99",
		Fields: []string{"mobile", "alt"},
	}

	pred, err := CompileIncremental(req)

	require.NoError(t, err)
	sql, _ := pred.SQL()
	assert.Equal(t, "(mobile ILIKE ? OR alt ILIKE ?)", sql)
}

func TestPredicate_AndCombination(t *testing.T) {
	original, _, err := Compile(&models.SearchRequest{
		FieldQueries: map[string]string{"fname": "singh"},
		Logic:        "AND",
	})
	require.NoError(t, err)

	refinement, err := CompileIncremental(&models.SearchWithinRequest{
		Query:  "delhi",
		Fields: []string{"address"},
	})
	require.NoError(t, err)

	combined := original.And(refinement)
	sql, args := combined.SQL()
	assert.Equal(t, "((fname ILIKE ?) AND (address ILIKE ?))", sql)
	assert.Equal(t, []any{"%singh%", "%delhi%"}, args)
}
