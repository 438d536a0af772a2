package ldapidp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tierforge/tierserve/config"
)

func TestResolveRejectsWhenDisabled(t *testing.T) {
	p := New(config.Ldap{Enable: false})
	_, err := p.Resolve(context.Background(), "alice")
	assert.Error(t, err)
}

func TestResolveRejectsEmptyToken(t *testing.T) {
	p := New(config.Ldap{Enable: true})
	_, err := p.Resolve(context.Background(), "")
	assert.Error(t, err)
}
