package wizard

import (
	"strings"

	"github.com/samber/lo"
)

// SelectMenu selects a menu category, seeding an empty item list for it if
// it has none yet
func (c *Controller) SelectMenu(menuID string) error {
	menuID = strings.TrimSpace(menuID)
	if menuID == "" {
		return &ValidationError{Message: "menu id is required"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	if _, ok := c.draft.SelectedMenus[menuID]; ok {
		delete(c.implicitMenus, menuID)
		return nil
	}

	menus := cloneMenus(c.draft.SelectedMenus)
	menus[menuID] = []string{}
	return c.updateLocked(FieldSelectedMenus, menus)
}

// ToggleMenuItem adds item to the category's selection, or removes it if it
// is already selected. Items are matched by name. Toggling an item of a
// category that is not selected yet selects the category; removing its last
// item deselects it again.
func (c *Controller) ToggleMenuItem(menuID, item string) error {
	menuID = strings.TrimSpace(menuID)
	item = strings.TrimSpace(item)
	if menuID == "" || item == "" {
		return &ValidationError{Message: "menu id and item name are required"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	menus := cloneMenus(c.draft.SelectedMenus)
	_, selected := menus[menuID]
	items := toggleItem(menus[menuID], item)
	implicit := !selected || c.implicitMenus[menuID]
	if len(items) == 0 && implicit {
		delete(menus, menuID)
	} else {
		menus[menuID] = items
	}

	if err := c.updateLocked(FieldSelectedMenus, menus); err != nil {
		return err
	}

	switch {
	case len(items) == 0 && implicit:
		delete(c.implicitMenus, menuID)
	case !selected:
		if c.implicitMenus == nil {
			c.implicitMenus = make(map[string]bool)
		}
		c.implicitMenus[menuID] = true
	}
	return nil
}

func toggleItem(items []string, item string) []string {
	if lo.Contains(items, item) {
		return lo.Without(items, item)
	}
	return append(append([]string{}, items...), item)
}
