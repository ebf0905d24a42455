package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/seed"
)

// Name diversity hints, cycled through batches so fifty users do not all
// come back as the model's favorite handful of names.
var nameCategories = []string{
	"common American names",
	"common Indian names",
	"common East Asian names",
	"common European names",
	"common Latin American names",
	"common Middle Eastern names",
	"common African names",
}

var professionHints = []string{
	"software engineers",
	"QA engineers",
	"product managers",
	"DevOps engineers",
	"engineering managers",
	"designers who work with engineering teams",
}

const userSystem = "You generate realistic employee rosters in JSON format. Output only valid JSON arrays."

// Users generates the configured number of user accounts and writes
// users.json. Emails are re-derived locally from the generated names, which
// also enforces uniqueness; the model cannot collide two accounts.
func (g *Generator) Users(ctx context.Context) ([]seed.User, error) {
	count := g.cfg.Generate.Users
	users := make([]seed.User, 0, count)
	usedEmails := map[string]bool{}
	usedNames := map[string]bool{}

	for batch := 0; len(users) < count; batch++ {
		want := count - len(users)
		if want > 10 {
			want = 10
		}
		category := nameCategories[batch%len(nameCategories)]
		profession := professionHints[batch%len(professionHints)]

		prompt := fmt.Sprintf(`Generate %d realistic people who would work as %s at a tech company.
Use %s. Every person must have a distinct first and last name.
%s

Return exactly this JSON structure (no extra text):
[{"first_name": "...", "last_name": "..."}]`,
			want, profession, category, avoidList("full names", usedKeys(usedNames)))

		var proposals []struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		}
		err := g.completeJSON(ctx, userSystem, prompt, func(text string) error {
			return llm.ExtractArray(text, &proposals)
		})
		if err != nil {
			return nil, fmt.Errorf("generate users: %w", err)
		}
		if len(proposals) == 0 && batch > 2*len(nameCategories) {
			return nil, fmt.Errorf("generate users: model produced nothing usable")
		}

		for _, p := range proposals {
			if p.FirstName == "" || p.LastName == "" || len(users) >= count {
				continue
			}
			full := p.FirstName + " " + p.LastName
			if usedNames[full] {
				continue
			}

			email := fmt.Sprintf("%s.%s@example.com",
				strings.ToLower(slugify(p.FirstName)), strings.ToLower(slugify(p.LastName)))
			for usedEmails[email] {
				email = fmt.Sprintf("%s.%s%d@example.com",
					strings.ToLower(slugify(p.FirstName)), strings.ToLower(slugify(p.LastName)), g.intn(900)+100)
			}
			usedNames[full] = true
			usedEmails[email] = true

			users = append(users, seed.User{
				Email:     email,
				Password:  fmt.Sprintf("Seed#%04d!pass", g.intn(10000)),
				FirstName: p.FirstName,
				LastName:  p.LastName,
			})
		}
		g.log.Infof("Generated %d/%d users", len(users), count)
	}

	if err := seed.Save(g.dir.Users(), users); err != nil {
		return nil, err
	}
	return users, nil
}
