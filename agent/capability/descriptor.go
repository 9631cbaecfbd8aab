// Package capability discovers the handlers the model may call and converts
// their descriptors into tool schemas.
package capability

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cast"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

// ValidateDescriptor checks that d can be offered to the model.
func ValidateDescriptor(d contractx.Descriptor) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: capability name is empty", contractx.ErrManifest)
	}
	for _, r := range d.Required {
		if _, ok := d.Parameters[r]; !ok {
			return fmt.Errorf("%w: capability %s requires undeclared parameter %q", contractx.ErrManifest, d.Name, r)
		}
	}
	for name, p := range d.Parameters {
		if toDataType(p.Type) == "" {
			return fmt.Errorf("%w: capability %s parameter %q has unsupported type %q", contractx.ErrManifest, d.Name, name, p.Type)
		}
	}
	return nil
}

// ToolInfo converts a descriptor into the eino tool schema.
func ToolInfo(d contractx.Descriptor) *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(d.Parameters))
	for name, p := range d.Parameters {
		info := parameterInfo(p)
		info.Required = d.IsRequired(name)
		params[name] = info
	}
	return &schema.ToolInfo{
		Name:        d.Name,
		Desc:        d.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

func ToolInfos(ds []contractx.Descriptor) []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(ds))
	for _, d := range ds {
		out = append(out, ToolInfo(d))
	}
	return out
}

// JSONSchema renders the parameter object schema used by raw function-calling APIs.
func JSONSchema(d contractx.Descriptor) map[string]any {
	props := make(map[string]any, len(d.Parameters))
	for name, p := range d.Parameters {
		props[name] = parameterSchema(p)
	}
	required := append([]string{}, d.Required...)
	sort.Strings(required)
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func parameterInfo(p contractx.Parameter) *schema.ParameterInfo {
	info := &schema.ParameterInfo{
		Type: toDataType(p.Type),
		Desc: describe(p),
		Enum: p.Enum,
	}
	if p.Items != nil {
		info.ElemInfo = parameterInfo(*p.Items)
	}
	return info
}

func parameterSchema(p contractx.Parameter) map[string]any {
	out := map[string]any{"type": string(toDataType(p.Type))}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Default != nil {
		out["default"] = p.Default
	}
	if p.Minimum != nil {
		out["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		out["maximum"] = *p.Maximum
	}
	if p.Items != nil {
		out["items"] = parameterSchema(*p.Items)
	}
	return out
}

// describe folds default and range hints into the description,
// since eino ParameterInfo carries neither.
func describe(p contractx.Parameter) string {
	desc := strings.TrimSpace(p.Description)
	var hints []string
	if p.Default != nil {
		hints = append(hints, "default "+cast.ToString(p.Default))
	}
	if p.Minimum != nil {
		hints = append(hints, "min "+cast.ToString(*p.Minimum))
	}
	if p.Maximum != nil {
		hints = append(hints, "max "+cast.ToString(*p.Maximum))
	}
	if len(hints) == 0 {
		return desc
	}
	return strings.TrimSpace(desc + " (" + strings.Join(hints, ", ") + ")")
}

func toDataType(t string) schema.DataType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "string", "":
		return schema.String
	case "integer", "int":
		return schema.Integer
	case "number", "float":
		return schema.Number
	case "boolean", "bool":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return ""
	}
}
