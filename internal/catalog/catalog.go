package catalog

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan - тариф подписки
type Plan struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Price        float64 `yaml:"price"`
	Currency     string  `yaml:"currency"`
	DurationDays int     `yaml:"duration_days"`
}

// Amount возвращает цену в виде строки, которую принимает платежный API
func (p Plan) Amount() string {
	return strconv.FormatFloat(p.Price, 'f', -1, 64)
}

// Label - подпись тарифа на клавиатуре: "Basic (5 USDT)"
func (p Plan) Label() string {
	return fmt.Sprintf("%s (%s %s)", p.Name, p.Amount(), p.Currency)
}

var ErrPlanNotFound = errors.New("plan not found")

// Catalog - неизменяемый упорядоченный список тарифов
type Catalog struct {
	plans []Plan
	byID  map[string]Plan
}

func New(plans ...Plan) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Plan, len(plans))}
	names := make(map[string]struct{}, len(plans))

	for _, p := range plans {
		if err := validatePlan(p); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate plan id %q", p.ID)
		}
		if _, dup := names[p.Name]; dup {
			return nil, fmt.Errorf("duplicate plan name %q", p.Name)
		}
		names[p.Name] = struct{}{}
		c.byID[p.ID] = p
		c.plans = append(c.plans, p)
	}

	if len(c.plans) == 0 {
		return nil, errors.New("catalog has no plans")
	}
	return c, nil
}

func validatePlan(p Plan) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return errors.New("plan id is empty")
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("plan %q: name is empty", p.ID)
	case p.Price <= 0:
		return fmt.Errorf("plan %q: price must be positive", p.ID)
	case p.Currency == "":
		return fmt.Errorf("plan %q: currency is empty", p.ID)
	case p.DurationDays < 1:
		return fmt.Errorf("plan %q: duration must be at least one day", p.ID)
	}
	return nil
}

type fileFormat struct {
	Plans []Plan `yaml:"plans"`
}

// Load читает каталог из YAML файла
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Plans...)
}

// Default - тарифы по умолчанию, если PLANS_FILE не задан
func Default() *Catalog {
	c, err := New(
		Plan{ID: "week", Name: "Неделя", Price: 3, Currency: "USDT", DurationDays: 7},
		Plan{ID: "month", Name: "Месяц", Price: 10, Currency: "USDT", DurationDays: 30},
		Plan{ID: "quarter", Name: "Квартал", Price: 25, Currency: "USDT", DurationDays: 90},
	)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

func (c *Catalog) Get(id string) (Plan, error) {
	p, ok := c.byID[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return p, nil
}

// MatchPrefix ищет тариф, название которого является префиксом текста.
// Так совпадает и голое имя "Basic", и подпись кнопки "Basic (5 USDT)".
// При нескольких совпадениях побеждает самое длинное имя.
func (c *Catalog) MatchPrefix(text string) (Plan, bool) {
	var (
		best  Plan
		found bool
	)
	for _, p := range c.plans {
		if strings.HasPrefix(text, p.Name) && (!found || len(p.Name) > len(best.Name)) {
			best = p
			found = true
		}
	}
	return best, found
}
