// Package weft is a tag-driven text templating core with a pluggable,
// priority-ordered module pipeline. It transforms text documents with
// embedded control tags plus a hierarchical data context into rendered
// output, and signals structural intent (such as block removal) to the
// surrounding document-format layer without knowing anything about
// native markup.
//
// Basic usage:
//
//	engine := weft.New()
//
//	data := weft.TemplateData{
//	    "name": "World",
//	    "items": []any{"a", "b", "c"},
//	}
//
//	out, result, err := engine.RenderText(ctx, "Hello {{name}}!", data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, record := range result.Errors {
//	    log.Println(record)
//	}
//
// Tag syntax:
//
//	Placeholder:        {{ path }}
//	Paragraph variant:  {{? path }}    (empty value signals block removal)
//	Raw splice:         {@ path }      (unescaped, closing brace is single)
//	Loop:               {% loop item in items %} ... {% endloop %}
//	Conditional:        {% if age >= 18 %} ... {% else %} ... {% endif %}
//	Module tag:         {% name data %}
//
// Multiple content units render independently and concurrently; modules
// registered on the engine run through four phases (preparse, token
// transform, render, postrender) in stable priority order for each unit.
package weft
