package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tbc399/command-line-trader/broker"
)

// Account holds the brokerage credentials for a context.
type Account struct {
	Name   string `yaml:"name"`
	Broker string `yaml:"broker"` // registered broker name, e.g. "tradier"
	Number string `yaml:"number"`
	Token  string `yaml:"token"`
	Env    string `yaml:"env"` // e.g. "api" or "sandbox"
}

// WatchlistItem is one watched symbol with free-form notes.
type WatchlistItem struct {
	Name  string `yaml:"name"`
	Notes string `yaml:"notes"`
}

// Context is one workspace: an account plus its watchlist. Contexts let a
// single install drive multiple accounts or configurations.
type Context struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Account     Account         `yaml:"account"`
	Watchlist   []WatchlistItem `yaml:"watchlist"`
}

// Broker constructs the broker configured on this context.
func (c *Context) Broker() (broker.Broker, error) {
	return broker.New(broker.Config{
		Name:          c.Account.Broker,
		AccountNumber: c.Account.Number,
		AccessToken:   c.Account.Token,
		Env:           c.Account.Env,
	})
}

// Watching reports whether name is already on the watchlist.
func (c *Context) Watching(name string) bool {
	for _, item := range c.Watchlist {
		if strings.EqualFold(item.Name, name) {
			return true
		}
	}
	return false
}

// Watch adds name to the watchlist; adding an already-watched name is
// reported via the return value.
func (c *Context) Watch(name, notes string) bool {
	if c.Watching(name) {
		return false
	}
	c.Watchlist = append(c.Watchlist, WatchlistItem{
		Name:  strings.ToUpper(name),
		Notes: notes,
	})
	return true
}

// Unwatch removes name from the watchlist.
func (c *Context) Unwatch(name string) {
	kept := c.Watchlist[:0]
	for _, item := range c.Watchlist {
		if !strings.EqualFold(item.Name, name) {
			kept = append(kept, item)
		}
	}
	c.Watchlist = kept
}

func contextDir() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "context")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create context directory: %w", err)
	}
	return dir, nil
}

func contextFile(name string) (string, error) {
	dir, err := contextDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".yaml"), nil
}

// SaveContext writes the context's YAML file.
func SaveContext(c *Context) error {
	path, err := contextFile(c.Name)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal context %s: %w", c.Name, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write context %s: %w", c.Name, err)
	}
	return nil
}

// LoadContext reads a context by name.
func LoadContext(name string) (*Context, error) {
	path, err := contextFile(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%q is not a context", name)
		}
		return nil, fmt.Errorf("read context %s: %w", name, err)
	}

	var c Context
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse context %s: %w", name, err)
	}
	if c.Name == "" {
		c.Name = name
	}
	return &c, nil
}

// RemoveContext deletes a context file.
func RemoveContext(name string) error {
	path, err := contextFile(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%q is not a context", name)
		}
		return fmt.Errorf("remove context %s: %w", name, err)
	}
	return nil
}

// ListContexts returns the names of all saved contexts, sorted.
func ListContexts() ([]string, error) {
	dir, err := contextDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") {
			names = append(names, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}
