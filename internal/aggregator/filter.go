package aggregator

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/herald/internal/core"
)

// excludeRule drops articles for which its expression evaluates to true.
type excludeRule struct {
	expression string
	program    *vm.Program
}

func compileExclude(expression string) (*excludeRule, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.Env(excludeEnv(core.Article{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile exclude rule: %w", err)
	}
	return &excludeRule{expression: expression, program: program}, nil
}

// Matches reports whether article should be dropped. A nil rule matches nothing.
func (r *excludeRule) Matches(article core.Article) (bool, error) {
	if r == nil {
		return false, nil
	}
	result, err := expr.Run(r.program, excludeEnv(article))
	if err != nil {
		return false, err
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("exclude rule did not return bool")
	}
	return matched, nil
}

func excludeEnv(article core.Article) map[string]interface{} {
	categories := article.Categories
	if categories == nil {
		categories = []string{}
	}
	return map[string]interface{}{
		"title":        article.Title,
		"link":         article.Link,
		"content":      article.ContentSnippet,
		"author":       article.Author,
		"categories":   categories,
		"source":       article.Source,
		"reading_time": article.ReadingTimeMinutes,
	}
}
