package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_String(t *testing.T) {
	assert.Equal(t, "a@example.com", Address{Address: "a@example.com"}.String())
	assert.Equal(t, `"Ann" <a@example.com>`, Address{Name: "Ann", Address: "a@example.com"}.String())
}

func TestParseAddressList(t *testing.T) {
	list, err := ParseAddressList(`"Doe, John" <j@example.com>, b@example.com,, `)
	require.NoError(t, err)
	assert.Equal(t, []Address{
		{Name: "Doe, John", Address: "j@example.com"},
		{Address: "b@example.com"},
	}, list)

	list, err = ParseAddressList("  ")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = ParseAddressList("a@example.com, @@")
	assert.Error(t, err)
}

func TestParseAddress_Empty(t *testing.T) {
	_, err := ParseAddress(" ")
	assert.Error(t, err)
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "<a@example.com>", FormatAddress("", "a@example.com"))
	assert.Equal(t, "Tom & Jerry <a@example.com>", FormatAddress("Tom & Jerry", "a@example.com"))
	assert.Equal(t, `"Smith, Jones & Co" <a@example.com>`, FormatAddress("Smith, Jones & Co", "a@example.com"))
	assert.Equal(t, `"The \"Best\" Shop" <a@example.com>`, FormatAddress(`The "Best" Shop`, "a@example.com"))
	assert.Equal(t, `"Evil: Co" <a@example.com>`, FormatAddress("Evil:\r\n Co", "a@example.com"))
}

func TestFormatAddress_ParsesBack(t *testing.T) {
	for _, name := range []string{"Shop", "Tom & Jerry", "Smith, Jones & Co", `The "Best" Shop`, "Café <Central>"} {
		list, err := ParseAddressList(FormatAddress(name, "a@example.com"))
		require.NoError(t, err, name)
		require.Len(t, list, 1, name)
		assert.Equal(t, Address{Name: name, Address: "a@example.com"}, list[0])
	}
}
