package siteselect

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/stockd-dev/stockd/internal/cli/client"
	"github.com/stockd-dev/stockd/internal/cli/userconfig"
)

// ResolveSite determines which site commands operate on:
// 1. If a site flag was provided, use the site with that ID or name
// 2. If the user has a selected site in their local config, use that
// 3. If the server only has one site, use it automatically
// 4. Otherwise, prompt the user to pick one
func ResolveSite(ctx context.Context, api *client.Client, accessToken, siteFlag string) (*client.Site, error) {
	sites, err := api.ListSites(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("no sites exist yet. Create one in the dashboard first")
	}

	if siteFlag != "" {
		site, err := getSiteByIDOrName(sites, siteFlag)
		if err != nil {
			return nil, err
		}
		return site, nil
	}

	selectedID, err := userconfig.GetSelectedSite()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if selectedID != "" {
		for i := range sites {
			if sites[i].ID == selectedID {
				return &sites[i], nil
			}
		}
		// Selected site was deleted server-side, clear it and continue
		_ = userconfig.SetSelectedSite("")
	}

	if len(sites) == 1 {
		site := &sites[0]
		if err := userconfig.SetSelectedSite(site.ID); err != nil {
			fmt.Printf("Warning: failed to save selected site: %v\n", err)
		}
		return site, nil
	}

	site, err := PromptSiteSelection(sites)
	if err != nil {
		return nil, err
	}

	if err := userconfig.SetSelectedSite(site.ID); err != nil {
		fmt.Printf("Warning: failed to save selected site: %v\n", err)
	}

	return site, nil
}

// PromptSiteSelection shows an interactive prompt for the user to select a site
func PromptSiteSelection(sites []client.Site) (*client.Site, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("no sites to select from")
	}

	type siteOption struct {
		Label string
		Site  *client.Site
	}

	options := make([]siteOption, len(sites))
	for i := range sites {
		site := &sites[i]
		label := site.Name
		if site.Address != "" {
			label = fmt.Sprintf("%s (%s)", site.Name, site.Address)
		}
		options[i] = siteOption{
			Label: label,
			Site:  site,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a site",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("site selection cancelled: %w", err)
	}

	return options[index].Site, nil
}

func getSiteByIDOrName(sites []client.Site, idOrName string) (*client.Site, error) {
	for i := range sites {
		if sites[i].ID == idOrName {
			return &sites[i], nil
		}
	}
	for i := range sites {
		if sites[i].Name == idOrName {
			return &sites[i], nil
		}
	}
	return nil, fmt.Errorf("site with ID or name '%s' not found", idOrName)
}
