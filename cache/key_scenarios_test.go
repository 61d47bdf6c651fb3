package cache_test

import (
	"testing"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
)

type keyScenario struct {
	Name       string           `json:"name"`
	Entity     string           `json:"entity"`
	Operation  string           `json:"operation"`
	Namespace  string           `json:"namespace"`
	Equivalent []map[string]any `json:"equivalent"`
	Distinct   []map[string]any `json:"distinct"`
}

type keyFixtures struct {
	Scenarios []keyScenario `json:"scenarios"`
}

func TestKeyComposer_Scenarios(t *testing.T) {
	var fixtures keyFixtures
	testsupport.LoadFixtureJSON(t, "key_scenarios.json", &fixtures)
	keys := cache.NewDefaultKeyComposer()

	for _, sc := range fixtures.Scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			seen := map[string]int{}
			for i, payload := range sc.Equivalent {
				key := keys.Compose(sc.Entity, sc.Operation, sc.Namespace, payload)
				seen[key] = i
			}
			if len(sc.Equivalent) > 0 && len(seen) != 1 {
				t.Errorf("equivalent payloads produced %d keys: %v", len(seen), seen)
			}

			distinct := map[string]bool{}
			for _, payload := range sc.Distinct {
				distinct[keys.Compose(sc.Entity, sc.Operation, sc.Namespace, payload)] = true
			}
			if len(distinct) != len(sc.Distinct) {
				t.Errorf("distinct payloads collided: %v", distinct)
			}
		})
	}
}
