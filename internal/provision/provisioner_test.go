// Copyright 2026 The Rentora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package provision

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseName(t *testing.T) {
	cases := []struct {
		subdomain string
		want      string
	}{
		{"shop1", "shop1_db"},
		{"Shop1", "shop1_db"},
		{"my-shop", "my_shop_db"},
		{"my--shop", "my_shop_db"},
		{"-shop-", "shop_db"},
		{"caf.e", "caf_e_db"},
	}

	for _, tc := range cases {
		t.Run(tc.subdomain, func(t *testing.T) {
			assert.Equal(t, tc.want, DatabaseName(tc.subdomain))
		})
	}
}

func TestDatabaseNameDeterministic(t *testing.T) {
	assert.Equal(t, DatabaseName("shop1"), DatabaseName("shop1"))
}

func TestTenantURL(t *testing.T) {
	got, err := TenantURL("postgres://admin:pw@cluster:5432/postgres?sslmode=require", "shop1_db")
	require.NoError(t, err)
	assert.Equal(t, "postgres://admin:pw@cluster:5432/shop1_db?sslmode=require", got)
}

func TestCreateTenantDatabaseRejectsEmptyDerivedName(t *testing.T) {
	p := New(Config{AdminURL: "postgres://admin@cluster:5432/postgres"})

	_, err := p.CreateTenantDatabase(context.Background(), "---")
	assert.Error(t, err)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"shop1_db"`, quoteIdentifier("shop1_db"))
	assert.Equal(t, `"a""b"`, quoteIdentifier(`a"b`))
}

func TestTenantSchemaEmbedded(t *testing.T) {
	require.NotEmpty(t, TenantSchema)
	assert.True(t, strings.Contains(TenantSchema, "shop_profile"))
}
