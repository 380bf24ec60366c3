// Package plugin evaluates plugin scripts and renders recipes through the
// processors they declare.
//
// Plugin scripts are CUE documents. The top-level struct is the plugin
// descriptor:
//
//	id:          "steam_age"
//	name:        "Steam Age"
//	description: "Boilers and export templates"
//	version:     "1.2.0"
//	machines: [{
//	    id: "boiler", name: "Boiler", description: "Makes steam."
//	    inputs:  [{type: "fluid", label: "Water"}]
//	    outputs: [{type: "fluid", label: "Steam"}]
//	}]
//	processors: [{
//	    id: "kubejs", name: "KubeJS"
//	    template: "event.custom('{{machine}}', {{input_ids}}, {{output_ids}})"
//	}, {
//	    id: "summary", name: "Summary"
//	    handler: {
//	        recipe:    _
//	        machine:   _
//	        resources: _
//	        out: "\(recipe.name) runs in \(machine.name)"
//	    }
//	}]
//
// CUE evaluation is hermetic: a script cannot reach the file system, the
// network or any host state, so evaluating an untrusted script can only
// produce a value or an error. Plugin content is touched in exactly two
// places: Evaluate and the handlers invoked by Render.
package plugin
