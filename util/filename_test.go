package util

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestFilenameFromContentDisposition(t *testing.T) {
	assert := assert_.New(t)

	cases := []struct {
		header   string
		expected string
	}{
		{`attachment; filename="Dust Breeding.zip"`, "Dust Breeding.zip"},
		{`attachment; filename=omega.zip`, "omega.zip"},
		{`attachment; filename*=UTF-8''Caf%C3%A9%20Chaos.zip`, "Café Chaos.zip"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{`attachment; filename="C:\\Users\\x\\track.mp3"`, "track.mp3"},
		{`attachment; filename=Spare Parts.zip`, "Spare Parts.zip"},
		{`attachment; filename=Spare Parts.zip; size=1024`, "Spare Parts.zip"},
		{`attachment; Filename=Jubilee (Remastered).mp3`, "Jubilee (Remastered).mp3"},
	}
	for _, c := range cases {
		filename, err := FilenameFromContentDisposition(c.header)
		if assert.NoError(err, c.header) {
			assert.Equal(c.expected, filename, c.header)
		}
	}
}

func TestFilenameFromContentDispositionFailures(t *testing.T) {
	assert := assert_.New(t)

	for _, header := range []string{
		"",
		"attachment",
		`attachment; filename=""`,
		`attachment; filename=".."`,
		`attachment; filename="unterminated`,
		`attachment; filename= ; size=1`,
		`attachment; name=Spare Parts.zip`,
	} {
		_, err := FilenameFromContentDisposition(header)
		assert.ErrorIs(err, ErrNoFilename, header)
	}
}
