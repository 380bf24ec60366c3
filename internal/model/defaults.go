package model

// DefaultCategories seed an empty categories table.
func DefaultCategories() []Category {
	return []Category{
		{ID: "item", Name: "Items", Color: "#3b82f6", IconType: IconBox},
		{ID: "fluid", Name: "Fluids", Color: "#f97316", IconType: IconDroplet},
		{ID: "energy", Name: "Energy", Color: "#eab308", IconType: IconZap},
	}
}

// DefaultResources seed an empty resources table.
func DefaultResources() []Resource {
	return []Resource{
		{ID: "iron_ore", Name: "Iron Ore", Type: "item"},
		{ID: "iron_ingot", Name: "Iron Ingot", Type: "item"},
		{ID: "energy", Name: "FE Energy", Type: "energy", Hidden: true},
	}
}

// DefaultMachines seed an empty machines table.
func DefaultMachines() []MachineDefinition {
	return []MachineDefinition{
		{
			ID:          "furnace",
			Name:        "Standard Furnace",
			Description: "Basic smelting of ores and items.",
			Inputs:      []MachineSlot{{Type: "item", Label: "Ingredient"}},
			Outputs:     []MachineSlot{{Type: "item", Label: "Smelted Result"}},
		},
		{
			ID:          "crusher",
			Name:        "Ore Crusher",
			Description: "Pulverizes ores into dusts. Requires power.",
			Inputs: []MachineSlot{
				{Type: "item", Label: "Input Item"},
				{Type: "energy", Label: "Power Source"},
			},
			Outputs: []MachineSlot{
				{Type: "item", Label: "Primary Output"},
				{Type: "item", Label: "Secondary Output (Optional)"},
			},
		},
		{
			ID:          "chemical_reactor",
			Name:        "Chemical Reactor",
			Description: "Complex reactions between fluids and items.",
			Inputs: []MachineSlot{
				{Type: "item", Label: "Base Item"},
				{Type: "fluid", Label: "Reagent Fluid"},
				{Type: "energy", Label: "Power"},
			},
			Outputs: []MachineSlot{
				{Type: "fluid", Label: "Product Fluid"},
				{Type: "item", Label: "Byproduct Item"},
			},
		},
		{
			ID:          "centrifuge",
			Name:        "Industrial Centrifuge",
			Description: "Separates components based on density.",
			Inputs: []MachineSlot{
				{Type: "fluid", Label: "Input Mixture"},
				{Type: "energy", Label: "Power"},
			},
			Outputs: []MachineSlot{
				{Type: "fluid", Label: "Light Phase"},
				{Type: "fluid", Label: "Heavy Phase"},
				{Type: "item", Label: "Sediment"},
			},
		},
	}
}
