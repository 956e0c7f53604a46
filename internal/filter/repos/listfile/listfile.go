// Package listfile loads filter list definitions from YAML, JSON and TOML
// files. A file names its list and carries the defaults and rules of each
// list type:
//
//	name: domain
//	deny:
//	  defaults:
//	    actions: {infraction_type: timeout, infraction_duration: 10m}
//	    validations: {bypass_roles: [staff]}
//	  rules:
//	    - {id: 1, content: example.com, description: spam}
//
// Role, channel and ping ids may be numbers or strings. JSON numbers are read
// as floats, so ids of 2^53 and above must be quoted there.
package listfile

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/haukened/rr-filter/internal/filter/domain"
)

var (
	listTypes = []domain.ListType{domain.ListAllow, domain.ListDeny}

	actionKeys     = []string{"infraction_type", "infraction_duration", "infraction_reason", "dm_content", "remove_context", "send_alert", "guild_pings", "dm_pings"}
	validationKeys = []string{"enabled", "bypass_roles", "channel_scope", "filter_dm"}
	scopeKeys      = []string{"disabled_channels", "disabled_categories", "enabled_channels"}
	ruleKeys       = []string{"id", "content", "description", "only_subdomains", "actions", "validations"}
)

// LoadListDirectory walks dir, loading every supported list file. Files
// naming the same list are merged in walk order; a later file's defaults
// replace an earlier file's for the list types it declares. Lists are
// returned sorted by name. Returns an error if any file fails to parse.
func LoadListDirectory(dir string, now time.Time) ([]domain.FilterList, error) {
	lists := make(map[string]*domain.FilterList)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		list, ok, err := loadListFile(path, now)
		if err != nil {
			return fmt.Errorf("error parsing list file %s: %w", path, err)
		}
		if !ok {
			return nil
		}
		merged, seen := lists[list.Name]
		if !seen {
			lists[list.Name] = &list
			return nil
		}
		for _, rules := range list.Rules {
			merged.AddRules(rules...)
		}
		for lt, d := range list.Defaults {
			merged.Defaults[lt] = d
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.FilterList, 0, len(lists))
	for _, l := range lists {
		out = append(out, *l)
	}
	slices.SortFunc(out, func(a, b domain.FilterList) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// LoadListFile loads a single list file. Unsupported extensions are an error.
func LoadListFile(path string, now time.Time) (domain.FilterList, error) {
	list, ok, err := loadListFile(path, now)
	if err != nil {
		return domain.FilterList{}, err
	}
	if !ok {
		return domain.FilterList{}, fmt.Errorf("unsupported list file type %q", filepath.Ext(path))
	}
	return list, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	case ".toml":
		return toml.Parser()
	default:
		return nil
	}
}

// loadListFile reports ok=false for unsupported file types.
func loadListFile(path string, now time.Time) (domain.FilterList, bool, error) {
	parser := parserFor(path)
	if parser == nil {
		return domain.FilterList{}, false, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return domain.FilterList{}, false, fmt.Errorf("failed to load list file %s: %w", path, err)
	}

	name := strings.TrimSpace(k.String("name"))
	if name == "" {
		return domain.FilterList{}, false, fmt.Errorf("list file %s missing 'name'", path)
	}

	list := domain.NewFilterList(name)
	for _, lt := range listTypes {
		prefix := lt.String()
		if !k.Exists(prefix) {
			continue
		}
		if k.Exists(prefix + ".defaults") {
			d, err := parseDefaults(k.Cut(prefix + ".defaults"))
			if err != nil {
				return domain.FilterList{}, false, fmt.Errorf("%s defaults in %s: %w", prefix, path, err)
			}
			list.Defaults[lt] = d
		}
		for i, rk := range k.Slices(prefix + ".rules") {
			r, err := parseRule(rk, lt, path, now)
			if err != nil {
				return domain.FilterList{}, false, fmt.Errorf("%s rule %d in %s: %w", prefix, i, path, err)
			}
			list.AddRules(r)
		}
	}

	if err := list.Validate(); err != nil {
		return domain.FilterList{}, false, err
	}
	return list, true, nil
}

func parseDefaults(k *koanf.Koanf) (domain.ListDefaults, error) {
	var d domain.ListDefaults
	if err := checkKeys(k, []string{"actions", "validations"}); err != nil {
		return d, err
	}
	a, err := parseActions(k.Cut("actions"))
	if err != nil {
		return d, err
	}
	v, err := parseValidations(k.Cut("validations"))
	if err != nil {
		return d, err
	}
	d.Actions, d.Validations = a, v
	return d, nil
}

func parseRule(k *koanf.Koanf, lt domain.ListType, source string, now time.Time) (domain.DomainRule, error) {
	if err := checkKeys(k, ruleKeys); err != nil {
		return domain.DomainRule{}, err
	}
	if !k.Exists("id") {
		return domain.DomainRule{}, fmt.Errorf("%w: missing 'id'", domain.ErrInvalidRule)
	}
	r, err := domain.NewDomainRule(k.Int("id"), k.String("content"), lt, source, now)
	if err != nil {
		return domain.DomainRule{}, err
	}
	r.Description = strings.TrimSpace(k.String("description"))
	r.OnlySubdomains = k.Bool("only_subdomains")
	if k.Exists("actions") {
		a, err := parseActions(k.Cut("actions"))
		if err != nil {
			return domain.DomainRule{}, fmt.Errorf("rule #%d actions: %w", r.ID, err)
		}
		r.Actions = &a
	}
	if k.Exists("validations") {
		v, err := parseValidations(k.Cut("validations"))
		if err != nil {
			return domain.DomainRule{}, fmt.Errorf("rule #%d validations: %w", r.ID, err)
		}
		r.Validations = &v
	}
	return r, nil
}

func parseActions(k *koanf.Koanf) (domain.ActionSettings, error) {
	var a domain.ActionSettings
	if err := checkKeys(k, actionKeys); err != nil {
		return a, err
	}
	if k.Exists("infraction_type") {
		t, err := domain.ParseInfractionType(k.String("infraction_type"))
		if err != nil {
			return a, err
		}
		a.InfractionType = &t
	}
	if k.Exists("infraction_duration") {
		d, err := parseDuration(k.String("infraction_duration"))
		if err != nil {
			return a, err
		}
		a.InfractionDuration = &d
	}
	if k.Exists("infraction_reason") {
		a.InfractionReason = domain.Ptr(k.String("infraction_reason"))
	}
	if k.Exists("dm_content") {
		a.DMContent = domain.Ptr(k.String("dm_content"))
	}
	if k.Exists("remove_context") {
		a.RemoveContext = domain.Ptr(k.Bool("remove_context"))
	}
	if k.Exists("send_alert") {
		a.SendAlert = domain.Ptr(k.Bool("send_alert"))
	}
	if k.Exists("guild_pings") {
		pings, err := toStringValues(k.Get("guild_pings"))
		if err != nil {
			return a, fmt.Errorf("guild_pings: %w", err)
		}
		a.GuildPings = domain.NormalizeSet(pings)
	}
	if k.Exists("dm_pings") {
		pings, err := toStringValues(k.Get("dm_pings"))
		if err != nil {
			return a, fmt.Errorf("dm_pings: %w", err)
		}
		a.DMPings = domain.NormalizeSet(pings)
	}
	return a, nil
}

func parseValidations(k *koanf.Koanf) (domain.ValidationSettings, error) {
	var v domain.ValidationSettings
	if err := checkKeys(k, validationKeys); err != nil {
		return v, err
	}
	if k.Exists("enabled") {
		v.Enabled = domain.Ptr(k.Bool("enabled"))
	}
	if k.Exists("bypass_roles") {
		roles, err := toStringValues(k.Get("bypass_roles"))
		if err != nil {
			return v, fmt.Errorf("bypass_roles: %w", err)
		}
		v.BypassRoles = roles
	}
	if k.Exists("channel_scope") {
		scope := k.Cut("channel_scope")
		if err := checkKeys(scope, scopeKeys); err != nil {
			return v, fmt.Errorf("channel_scope: %w", err)
		}
		var cs domain.ChannelScope
		for _, f := range []struct {
			key string
			dst *[]string
		}{
			{"disabled_channels", &cs.DisabledChannels},
			{"disabled_categories", &cs.DisabledCategories},
			{"enabled_channels", &cs.EnabledChannels},
		} {
			ids, err := toStringValues(scope.Get(f.key))
			if err != nil {
				return v, fmt.Errorf("channel_scope.%s: %w", f.key, err)
			}
			*f.dst = ids
		}
		v.ChannelScope = &cs
	}
	if k.Exists("filter_dm") {
		v.FilterDM = domain.Ptr(k.Bool("filter_dm"))
	}
	return v, nil
}

// parseDuration accepts Go duration strings ("10m", "1h30m") or a plain
// number of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid infraction_duration %q", s)
}

// checkKeys rejects top-level keys outside allowed.
func checkKeys(k *koanf.Koanf, allowed []string) error {
	for _, key := range k.Keys() {
		top, _, _ := strings.Cut(key, ".")
		if !slices.Contains(allowed, top) {
			return fmt.Errorf("unknown key %q", top)
		}
	}
	return nil
}

// JSON numbers reach koanf as float64; integers at or past 2^53 may already
// have been rounded and must be quoted instead.
const maxExactFloat = 1 << 53

// toStringValues converts a raw koanf-parsed value (scalar or []any) into a
// slice of non-empty strings. A present but empty list yields an empty,
// non-nil slice. Numeric ids are kept in plain decimal form.
func toStringValues(val any) ([]string, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, err := scalarString(elem)
			if err != nil {
				return nil, err
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		s, err := scalarString(v)
		if err != nil {
			return nil, err
		}
		if s != "" {
			return []string{s}, nil
		}
		return []string{}, nil
	}
}

func scalarString(val any) (string, error) {
	switch v := val.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		if v != math.Trunc(v) || math.Abs(v) >= maxExactFloat {
			return "", fmt.Errorf("numeric id %s is not an exact integer, quote it as a string", strconv.FormatFloat(v, 'g', -1, 64))
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return strings.TrimSpace(fmt.Sprint(v)), nil
	}
}
