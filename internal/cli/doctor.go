package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planeseed/planeseed/internal/config"
	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/ratelimit"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check seeder configuration and target reachability",
	Long:  `Runs diagnostic checks on the configuration, credentials, seed files and the target deployment, and reports pass/fail for each.`,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	passed := 0
	failed := 0

	check := func(name string, ok bool, detail string) {
		if ok {
			fmt.Printf("  ✓ %s\n", name)
			passed++
		} else {
			fmt.Printf("  ✗ %s — %s\n", name, detail)
			failed++
		}
	}

	fmt.Println("Configuration:")
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		check("config readable", false, cfgErr.Error())
		return fmt.Errorf("%d checks failed", failed)
	}
	check("config readable", true, "")
	check("global config file", exists(config.GlobalConfigPath()), "run: planeseed init")

	fmt.Println()
	fmt.Println("Credentials:")
	creds := config.LoadCredentials()
	check("ANTHROPIC_API_KEY", creds.RequireLLM() == nil, "needed by 'generate'")
	check("admin credentials", creds.RequireAdmin() == nil,
		"set SEEDER_ADMIN_EMAIL and SEEDER_ADMIN_PASSWORD")

	fmt.Println()
	fmt.Println("Seed files:")
	dir := cfg.Seed.Dir
	check("seed directory", exists(dir), "run: planeseed generate")
	for _, f := range []string{"workspace.json", "users.json", "projects.json", "issues.json"} {
		check(f, exists(dir+"/"+f), "run: planeseed generate")
	}

	fmt.Println()
	fmt.Println("Target deployment:")
	if creds.RequireAdmin() != nil {
		check("admin login", false, "credentials not set")
	} else {
		budget, err := ratelimit.NewBudget(cfg.API.RatePerSec)
		if err != nil {
			return err
		}
		client := plane.NewClient(plane.Config{
			BaseURL:  cfg.API.BaseURL,
			WebURL:   cfg.API.WebURL,
			Email:    creds.AdminEmail,
			Password: creds.AdminPassword,
			PoolSize: 1,
		}, budget)
		loginErr := client.Login(cmd.Context())
		check("admin login", loginErr == nil, fmt.Sprintf("%v", loginErr))
		if loginErr == nil {
			authErr := client.CheckAuth(cmd.Context())
			check("profile endpoint", authErr == nil, fmt.Sprintf("%v", authErr))
		}
	}

	fmt.Println()
	fmt.Printf("%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
