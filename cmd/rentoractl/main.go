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

// rentoractl is the tenant onboarding CLI. Provisioning and
// registration are independent operations; `onboard` sequences them,
// and retrying after a partial failure is the operator's call.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/rentora/rentora/internal/audit"
	"github.com/rentora/rentora/internal/merchant"
	"github.com/rentora/rentora/internal/provision"
	"github.com/rentora/rentora/internal/store/postgres"
	"github.com/rentora/rentora/internal/tenant"
)

var flagRegistryURL *cli.StringFlag = &cli.StringFlag{
	Name:    "registry-url",
	EnvVars: []string{"REGISTRY_DATABASE_URL"},
	Usage:   "Registry (main) database connection string",
}
var flagAdminURL *cli.StringFlag = &cli.StringFlag{
	Name:    "admin-url",
	EnvVars: []string{"REGISTRY_ADMIN_DATABASE_URL"},
	Usage:   "Connection string with CREATEDB privileges on the tenant cluster",
}
var flagSubdomain *cli.StringFlag = &cli.StringFlag{
	Name:     "subdomain",
	Required: true,
	Usage:    "Tenant subdomain (lowercase, unique)",
}
var flagName *cli.StringFlag = &cli.StringFlag{
	Name:  "name",
	Usage: "Tenant display name",
}
var flagMerchantID *cli.StringFlag = &cli.StringFlag{
	Name:  "merchant-id",
	Usage: "Owning merchant id",
}
var flagMerchantName *cli.StringFlag = &cli.StringFlag{
	Name:  "merchant-name",
	Usage: "Merchant name to create when no --merchant-id is given",
}
var flagMerchantEmail *cli.StringFlag = &cli.StringFlag{
	Name:  "merchant-email",
	Usage: "Merchant email to create when no --merchant-id is given",
}
var flagDatabaseURL *cli.StringFlag = &cli.StringFlag{
	Name:  "database-url",
	Usage: "Tenant database connection string (from a prior provision run)",
}
var flagForce *cli.BoolFlag = &cli.BoolFlag{
	Name:  "force",
	Usage: "Drop an existing same-named tenant database before creating (destroys data)",
}

func main() {
	app := &cli.App{
		Name:  "rentoractl",
		Usage: "rentora tenant onboarding",
		Commands: []*cli.Command{
			{
				Name:        "provision",
				Usage:       "create a tenant database and apply the shared schema",
				Description: "Prints the resulting connection string for a later register step.",
				Flags:       []cli.Flag{flagAdminURL, flagSubdomain, flagForce},
				Action:      runProvision,
			},
			{
				Name:   "register",
				Usage:  "create the registry record for a provisioned tenant",
				Flags:  []cli.Flag{flagRegistryURL, flagSubdomain, flagName, flagMerchantID, flagDatabaseURL},
				Action: runRegister,
			},
			{
				Name:        "onboard",
				Usage:       "provision and register a tenant in one run",
				Description: "Creates the merchant (unless --merchant-id is given), provisions the tenant database, then registers the tenant.",
				Flags: []cli.Flag{
					flagRegistryURL, flagAdminURL, flagSubdomain, flagName,
					flagMerchantID, flagMerchantName, flagMerchantEmail, flagForce,
				},
				Action: runOnboard,
			},
			{
				Name:   "list",
				Usage:  "list registered tenants",
				Flags:  []cli.Flag{flagRegistryURL},
				Action: runList,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runProvision(cCtx *cli.Context) error {
	p := provision.New(provision.Config{
		AdminURL:  cCtx.String(flagAdminURL.Name),
		AllowDrop: cCtx.Bool(flagForce.Name),
	})

	url, err := p.CreateTenantDatabase(cCtx.Context, cCtx.String(flagSubdomain.Name))
	if err != nil {
		return err
	}

	fmt.Println(url)
	return nil
}

func runRegister(cCtx *cli.Context) error {
	svc := tenantService(cCtx)

	t, err := svc.CreateTenant(cCtx.Context, tenant.CreateParams{
		Subdomain:   cCtx.String(flagSubdomain.Name),
		DisplayName: cCtx.String(flagName.Name),
		MerchantID:  cCtx.String(flagMerchantID.Name),
		DatabaseURL: cCtx.String(flagDatabaseURL.Name),
	})
	if err != nil {
		return err
	}

	fmt.Printf("registered tenant %s (%s)\n", t.Subdomain, t.ID)
	return nil
}

func runOnboard(cCtx *cli.Context) error {
	registry := postgres.NewRegistry(cCtx.String(flagRegistryURL.Name))
	subdomain := cCtx.String(flagSubdomain.Name)

	merchantID := cCtx.String(flagMerchantID.Name)
	if merchantID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		now := time.Now()
		m := &merchant.Merchant{
			ID:        id.String(),
			Name:      cCtx.String(flagMerchantName.Name),
			Email:     cCtx.String(flagMerchantEmail.Name),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if m.Name == "" || m.Email == "" {
			return fmt.Errorf("either --merchant-id or both --merchant-name and --merchant-email are required")
		}
		if err := postgres.NewMerchantRepository(registry).Create(cCtx.Context, m); err != nil {
			return err
		}
		merchantID = m.ID
		fmt.Printf("created merchant %s (%s)\n", m.Name, m.ID)
	}

	p := provision.New(provision.Config{
		AdminURL:  cCtx.String(flagAdminURL.Name),
		AllowDrop: cCtx.Bool(flagForce.Name),
	})
	databaseURL, err := p.CreateTenantDatabase(cCtx.Context, subdomain)
	if err != nil {
		return err
	}
	fmt.Printf("provisioned database for %s\n", subdomain)

	name := cCtx.String(flagName.Name)
	if name == "" {
		name = subdomain
	}

	t, err := tenantService(cCtx).CreateTenant(cCtx.Context, tenant.CreateParams{
		Subdomain:   subdomain,
		DisplayName: name,
		MerchantID:  merchantID,
		DatabaseURL: databaseURL,
	})
	if err != nil {
		return err
	}

	fmt.Printf("registered tenant %s (%s)\n", t.Subdomain, t.ID)
	return nil
}

func runList(cCtx *cli.Context) error {
	registry := postgres.NewRegistry(cCtx.String(flagRegistryURL.Name))
	tenants, err := postgres.NewTenantRepository(registry).List(cCtx.Context)
	if err != nil {
		return err
	}

	for _, t := range tenants {
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
			t.Subdomain, t.Status, t.DisplayName, t.MerchantName, t.MaskedDatabaseURL())
	}
	return nil
}

func tenantService(cCtx *cli.Context) *tenant.Service {
	registry := postgres.NewRegistry(cCtx.String(flagRegistryURL.Name))
	return tenant.NewService(postgres.NewTenantRepository(registry), nil, audit.NewSlogLogger())
}
