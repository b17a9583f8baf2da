package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalContentID(t *testing.T) {
	assert.Equal(t, "chan1:42", ExternalContentID("chan1", 42))
	assert.Equal(t, "-100123:1", ExternalContentID("-100123", 1))
}

func TestSourcePeer(t *testing.T) {
	name := "Channel"

	src := Source{ExternalID: "-100123", Name: &name}
	assert.Equal(t, "-100123", src.Peer())

	src.Metadata.Username = "channelname"
	assert.Equal(t, "channelname", src.Peer())
}

func TestSourceDisplayName(t *testing.T) {
	src := Source{ExternalID: "-100123"}
	assert.Equal(t, "-100123", src.DisplayName())

	name := "Channel"
	src.Name = &name
	assert.Equal(t, "Channel", src.DisplayName())

	empty := ""
	src.Name = &empty
	assert.Equal(t, "-100123", src.DisplayName())
}
