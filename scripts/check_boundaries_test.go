package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGoFile(t *testing.T, root string, rel string, body string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestCollectViolations(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	writeGoFile(t, root, "contexts/token-economics/vesting-engine/domain/entities/ok.go", `package entities

import (
	"strings"

	"github.com/shopspring/decimal"
	"tokenvest/contexts/token-economics/vesting-engine/domain/errors"
)
`)
	writeGoFile(t, root, "contexts/token-economics/vesting-engine/domain/entities/bad.go", `package entities

import (
	"gorm.io/gorm"
	"tokenvest/internal/platform/db"
)
`)
	writeGoFile(t, root, "contexts/token-economics/vesting-engine/application/commands/bad.go", `package commands

import "tokenvest/contexts/token-economics/vesting-engine/adapters/memory"
`)
	writeGoFile(t, root, "contexts/token-economics/vesting-engine/application/commands/ok_test.go", `package commands

import "tokenvest/contexts/token-economics/vesting-engine/adapters/memory"
`)

	violations := collectViolations("contexts")

	rules := map[string][]string{}
	for _, v := range violations {
		rules[filepath.Base(v.File)+" "+v.Import] = append(rules[filepath.Base(v.File)+" "+v.Import], v.Rule)
	}
	assert.Contains(t, rules["bad.go gorm.io/gorm"], "domain import is outside explicit allowlist")
	assert.Contains(t, rules["bad.go tokenvest/internal/platform/db"], "domain must not import runtime infrastructure")
	assert.Contains(t, rules["bad.go tokenvest/contexts/token-economics/vesting-engine/adapters/memory"], "application must not import adapters")
	for _, v := range violations {
		assert.NotEqual(t, "ok.go", filepath.Base(v.File))
		assert.NotEqual(t, "ok_test.go", filepath.Base(v.File))
	}
}

func TestIsStdlib(t *testing.T) {
	assert.True(t, isStdlib("net/http"))
	assert.False(t, isStdlib("github.com/spf13/viper"))
	assert.False(t, isStdlib("tokenvest/internal/platform/db"))
}

func TestDomainPackagesImportOnlyLowerRanks(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	writeGoFile(t, root, "contexts/token-economics/vesting-engine/domain/schedule/bad.go", `package schedule

import (
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	"tokenvest/contexts/token-economics/vesting-engine/domain/valueobjects"
	"tokenvest/contexts/token-economics/vesting-engine/application"
)
`)
	writeGoFile(t, root, "contexts/token-economics/vesting-engine/domain/services/ok.go", `package services

import (
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	"tokenvest/contexts/token-economics/vesting-engine/domain/schedule"
)
`)

	violations := collectViolations("contexts")

	var rules []string
	for _, v := range violations {
		assert.Equal(t, "bad.go", filepath.Base(v.File))
		rules = append(rules, v.Rule)
	}
	assert.Contains(t, rules, "domain/schedule must not import domain/entities")
	assert.Contains(t, rules, "domain import is outside explicit allowlist")
	assert.Len(t, violations, 2)
}

func TestPortsAndTransportStayThin(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	writeGoFile(t, root, "contexts/token-economics/vesting-engine/ports/ports.go", `package ports

import (
	"tokenvest/contexts/token-economics/vesting-engine/domain/entities"
	contractsv1 "tokenvest/contracts/gen/events/v1"
	"tokenvest/contexts/token-economics/vesting-engine/adapters/redis"
)
`)
	writeGoFile(t, root, "contexts/token-economics/vesting-engine/transport/http/dto.go", `package http

import "tokenvest/contexts/token-economics/vesting-engine/application"
`)

	rules := map[string]string{}
	for _, v := range collectViolations("contexts") {
		rules[v.Import] = v.Rule
	}
	assert.NotContains(t, rules, "tokenvest/contexts/token-economics/vesting-engine/domain/entities")
	assert.NotContains(t, rules, "tokenvest/contracts/gen/events/v1")
	assert.Contains(t, rules, "tokenvest/contexts/token-economics/vesting-engine/adapters/redis")
	assert.Equal(t, "transport import is outside explicit allowlist",
		rules["tokenvest/contexts/token-economics/vesting-engine/application"])
}

func TestContractsImportOnlyPureLibraries(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	writeGoFile(t, root, "contracts/gen/events/v1/ok.go", `package v1

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)
`)
	writeGoFile(t, root, "contracts/gen/events/v1/bad.go", `package v1

import "tokenvest/contexts/token-economics/vesting-engine/ports"
`)

	violations := collectContractViolations("contracts")
	require.Len(t, violations, 1)
	assert.Equal(t, "bad.go", filepath.Base(violations[0].File))
	assert.Equal(t, "contracts may import only stdlib and pure libraries", violations[0].Rule)
}
