// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupRange(t *testing.T) {
	for _, tc := range []struct {
		size          int
		flat, cascade string
	}{
		{1, "$A$3:$A$3", "$B$3:$B$3"},
		{25, "$A$3:$Y$3", "$B$3:$Z$3"},
		{26, "$A$3:$Z$3", "$B$3:$AA$3"},
		{27, "$A$3:$AA$3", "$B$3:$AB$3"},
		{52, "$A$3:$AZ$3", "$B$3:$BA$3"},
		{53, "$A$3:$BA$3", "$B$3:$BB$3"},
	} {
		got, err := lookupRange(LabelSheet, 3, tc.size, false)
		require.NoError(t, err)
		assert.Equal(t, "'_labels'!"+tc.flat, got, "flat %d", tc.size)
		got, err = lookupRange(LabelSheet, 3, tc.size, true)
		require.NoError(t, err)
		assert.Equal(t, "'_labels'!"+tc.cascade, got, "cascade %d", tc.size)
	}
	_, err := lookupRange(LabelSheet, 1, 0, false)
	assert.Error(t, err)
}

func TestLookupName(t *testing.T) {
	name := lookupName(0, 1, "country", "label")
	assert.Regexp(t, regexp.MustCompile(`^_L[0-9a-f]{16}$`), name)
	assert.Equal(t, name, lookupName(0, 1, "country", "label"))
	for _, other := range []string{
		lookupName(1, 1, "country", "label"),
		lookupName(0, 0, "country", "label"),
		lookupName(0, 1, "city", "label"),
		lookupName(0, 1, "country", "code"),
		lookupName(0, 11, "", "label"),
	} {
		assert.NotEqual(t, name, other)
	}
}

func TestParseRange(t *testing.T) {
	sheet, fc, fr, tc, tr, err := parseRange("='_labels'!$B$3:$D$3")
	require.NoError(t, err)
	assert.Equal(t, "_labels", sheet)
	assert.Equal(t, []int{2, 3, 4, 3}, []int{fc, fr, tc, tr})

	sheet, fc, fr, tc, tr, err = parseRange("Data!C7")
	require.NoError(t, err)
	assert.Equal(t, "Data", sheet)
	assert.Equal(t, []int{3, 7, 3, 7}, []int{fc, fr, tc, tr})

	_, _, _, _, _, err = parseRange("$A$1")
	assert.Error(t, err)
}

func TestGroupChoices(t *testing.T) {
	groups := groupChoices([]string{"HU", "AT", "DE"}, []Choice{
		{Parent: "AT", Label: "Wien"},
		{Parent: "HU", Label: "Budapest", Code: "BP"},
		{Parent: "XX", Label: "Nowhere"},
		{Parent: "HU", Label: "Debrecen"},
	})
	require.Len(t, groups, 3)
	assert.Equal(t, []Choice{{Parent: "HU", Label: "Budapest", Code: "BP"}, {Parent: "HU", Label: "Debrecen"}}, groups[0])
	assert.Equal(t, []Choice{{Parent: "AT", Label: "Wien"}}, groups[1])
	assert.Empty(t, groups[2])
	assert.Equal(t, "BP", groups[0][0].code())
	assert.Equal(t, "Debrecen", groups[0][1].code())
}

func TestLookupsCode(t *testing.T) {
	var l Lookups
	l.add("country", "", []string{"Hungary", "Austria"}, []string{"HU", "AT"})
	l.add("city", "Hungary", []string{"Budapest"}, []string{"BP"})

	code, ok, found := l.Code("country", "", "Austria")
	assert.Equal(t, "AT", code)
	assert.True(t, ok)
	assert.True(t, found)

	_, ok, found = l.Code("country", "", "Narnia")
	assert.False(t, ok)
	assert.True(t, found)

	code, ok, _ = l.Code("city", "Hungary", "Budapest")
	assert.True(t, ok)
	assert.Equal(t, "BP", code)

	_, _, found = l.Code("city", "Austria", "Budapest")
	assert.False(t, found)
}
