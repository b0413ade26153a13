package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleJoinsAndTrimsOnce(t *testing.T) {
	res := Assemble("f.pdf", []PageResult{
		{Number: 1, Text: "\n  A", Image: "i1", Crops: []string{"c1"}},
		{Number: 2, Text: "B", Image: "i2"},
		{Number: 3, Text: "", Image: "i3", Crops: []string{"c2", "c3"}},
	}, true)

	assert.Equal(t, "A\nB", res.Text)
	assert.Equal(t, []string{"i1", "i2", "i3"}, res.Images)
	assert.Equal(t, []string{"c1", "c2", "c3"}, res.CroppedImages)
}

func TestAssembleIgnoresCropsWhenDisabled(t *testing.T) {
	res := Assemble("f.pdf", []PageResult{{Text: "A", Image: "i1", Crops: []string{"c1"}}}, false)
	assert.Nil(t, res.CroppedImages)
	assert.False(t, res.DiagramsEnabled)
}

func TestResultJSONShape(t *testing.T) {
	enabled := Assemble("f.pdf", []PageResult{{Text: "A", Image: "i1"}}, true)
	body, err := json.Marshal(enabled)
	require.NoError(t, err)
	assert.JSONEq(t, `{"filename":"f.pdf","text":"A","images":["i1"],"cropped_images":[]}`, string(body))

	var back Result
	require.NoError(t, json.Unmarshal(body, &back))
	assert.True(t, back.DiagramsEnabled)
	assert.Equal(t, []string{}, back.CroppedImages)

	disabled := Assemble("f.pdf", []PageResult{{Text: "A", Image: "i1"}}, false)
	body, err = json.Marshal(disabled)
	require.NoError(t, err)
	assert.JSONEq(t, `{"filename":"f.pdf","text":"A","images":["i1"]}`, string(body))

	back = Result{}
	require.NoError(t, json.Unmarshal(body, &back))
	assert.False(t, back.DiagramsEnabled)
	assert.Equal(t, "A", back.Text)
}
