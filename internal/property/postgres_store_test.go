package property

import (
	"strings"
	"testing"

	"github.com/suPer8Hu/estate-chat/internal/query"
)

func TestBuildFind_PlaceholdersAndOrdering(t *testing.T) {
	q, args := buildFind(query.Interpret("2 BHK in Mumbai under 1 crore"), 5, 10)

	for _, want := range []string{
		"bedrooms_min <= $1 AND bedrooms_max >= $1",
		"price_min <= $2",
		"(numnode(to_tsquery('english', $3)) = 0 OR search_vector @@ to_tsquery('english', $3))",
		"ORDER BY text_rank DESC, created_at DESC, id DESC",
		"LIMIT $4 OFFSET $5",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("query missing %q:\n%s", want, q)
		}
	}
	if len(args) != 5 || args[2] != "mumbai" || args[3] != 5 || args[4] != 10 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildFind_NoSignals(t *testing.T) {
	q, args := buildFind(query.Criteria{}, 20, 0)
	if strings.Contains(q, "search_vector @@") || !strings.Contains(q, "ORDER BY created_at DESC, id DESC") {
		t.Fatalf("unexpected query:\n%s", q)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildFind_TermsJoinedWithOr(t *testing.T) {
	_, args := buildFind(query.Criteria{Terms: []string{"bandra", "sea"}}, 5, 0)
	if args[0] != "bandra | sea" {
		t.Fatalf("unexpected tsquery arg: %v", args[0])
	}
}
