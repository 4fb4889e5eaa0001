package graph

import (
	"context"
	"errors"
	"strconv"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/vektah/gqlparser/v2/ast"
)

func (ec *executionContext) introspectSchema() (*introspection.Schema, error) {
	if ec.DisableIntrospection {
		return nil, errors.New("introspection disabled")
	}
	return introspection.WrapSchema(ec.Schema()), nil
}

func (ec *executionContext) introspectType(name string) (*introspection.Type, error) {
	if ec.DisableIntrospection {
		return nil, errors.New("introspection disabled")
	}
	return introspection.WrapTypeFromDef(ec.Schema(), ec.Schema().Types[name]), nil
}

func (ec *executionContext) _Query___schema(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Query", field, false)
	return resolveField(ctx, ec, fc, func(context.Context) (*introspection.Schema, error) {
		return ec.introspectSchema()
	}, ec.marshalO__Schema)
}

func (ec *executionContext) _Query___type(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	fc := ec.fieldContext("Query", field, false)
	return resolveField(ctx, ec, fc, func(context.Context) (*introspection.Type, error) {
		name, err := graphql.UnmarshalString(fc.Args["name"])
		if err != nil {
			return nil, invalidArg("name", err)
		}
		return ec.introspectType(name)
	}, ec.marshalO__Type)
}

func includeDeprecated(args map[string]any) bool {
	v, _ := args["includeDeprecated"].(bool)
	return v
}

var __SchemaImplementors = []string{"__Schema"}

func (ec *executionContext) ___Schema(ctx context.Context, sel ast.SelectionSet, obj *introspection.Schema) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, __SchemaImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		ctx := graphql.WithFieldContext(ctx, ec.fieldContext("__Schema", field, false))
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__Schema")
		case "description":
			out.Values[i] = marshalOString(obj.Description())
		case "types":
			out.Values[i] = marshalList(ctx, field.Selections, obj.Types(), ec.marshalN__TypeValue)
		case "queryType":
			out.Values[i] = ec.marshalN__Type(ctx, field.Selections, obj.QueryType())
		case "mutationType":
			out.Values[i] = ec.marshalO__Type(ctx, field.Selections, obj.MutationType())
		case "subscriptionType":
			out.Values[i] = ec.marshalO__Type(ctx, field.Selections, obj.SubscriptionType())
		case "directives":
			out.Values[i] = marshalList(ctx, field.Selections, obj.Directives(), ec.marshalN__Directive)
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null && field.Definition.Type.NonNull {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

var __TypeImplementors = []string{"__Type"}

func (ec *executionContext) ___Type(ctx context.Context, sel ast.SelectionSet, obj *introspection.Type) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, __TypeImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		fc := ec.fieldContext("__Type", field, false)
		ctx := graphql.WithFieldContext(ctx, fc)
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__Type")
		case "kind":
			out.Values[i] = graphql.MarshalString(obj.Kind())
		case "name":
			out.Values[i] = marshalOString(obj.Name())
		case "description":
			out.Values[i] = marshalOString(obj.Description())
		case "fields":
			out.Values[i] = marshalOList(ctx, field.Selections, obj.Fields(includeDeprecated(fc.Args)), ec.marshalN__Field)
		case "interfaces":
			out.Values[i] = marshalOList(ctx, field.Selections, obj.Interfaces(), ec.marshalN__TypeValue)
		case "possibleTypes":
			out.Values[i] = marshalOList(ctx, field.Selections, obj.PossibleTypes(), ec.marshalN__TypeValue)
		case "enumValues":
			out.Values[i] = marshalOList(ctx, field.Selections, obj.EnumValues(includeDeprecated(fc.Args)), ec.marshalN__EnumValue)
		case "inputFields":
			out.Values[i] = marshalOList(ctx, field.Selections, obj.InputFields(), ec.marshalN__InputValue)
		case "ofType":
			out.Values[i] = ec.marshalO__Type(ctx, field.Selections, obj.OfType())
		case "specifiedByURL":
			out.Values[i] = marshalOString(obj.SpecifiedByURL())
		case "isOneOf":
			out.Values[i] = graphql.MarshalBoolean(obj.IsOneOf())
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null && field.Definition.Type.NonNull {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

var __FieldImplementors = []string{"__Field"}

func (ec *executionContext) ___Field(ctx context.Context, sel ast.SelectionSet, obj *introspection.Field) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, __FieldImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		ctx := graphql.WithFieldContext(ctx, ec.fieldContext("__Field", field, false))
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__Field")
		case "name":
			out.Values[i] = graphql.MarshalString(obj.Name)
		case "description":
			out.Values[i] = marshalOString(obj.Description())
		case "args":
			out.Values[i] = marshalList(ctx, field.Selections, obj.Args, ec.marshalN__InputValue)
		case "type":
			out.Values[i] = ec.marshalN__Type(ctx, field.Selections, obj.Type)
		case "isDeprecated":
			out.Values[i] = graphql.MarshalBoolean(obj.IsDeprecated())
		case "deprecationReason":
			out.Values[i] = marshalOString(obj.DeprecationReason())
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null && field.Definition.Type.NonNull {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

var __InputValueImplementors = []string{"__InputValue"}

func (ec *executionContext) ___InputValue(ctx context.Context, sel ast.SelectionSet, obj *introspection.InputValue) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, __InputValueImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		ctx := graphql.WithFieldContext(ctx, ec.fieldContext("__InputValue", field, false))
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__InputValue")
		case "name":
			out.Values[i] = graphql.MarshalString(obj.Name)
		case "description":
			out.Values[i] = marshalOString(obj.Description())
		case "type":
			out.Values[i] = ec.marshalN__Type(ctx, field.Selections, obj.Type)
		case "defaultValue":
			out.Values[i] = marshalOString(obj.DefaultValue)
		case "isDeprecated":
			out.Values[i] = graphql.MarshalBoolean(obj.IsDeprecated())
		case "deprecationReason":
			out.Values[i] = marshalOString(obj.DeprecationReason())
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null && field.Definition.Type.NonNull {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

var __EnumValueImplementors = []string{"__EnumValue"}

func (ec *executionContext) ___EnumValue(ctx context.Context, sel ast.SelectionSet, obj *introspection.EnumValue) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, __EnumValueImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__EnumValue")
		case "name":
			out.Values[i] = graphql.MarshalString(obj.Name)
		case "description":
			out.Values[i] = marshalOString(obj.Description())
		case "isDeprecated":
			out.Values[i] = graphql.MarshalBoolean(obj.IsDeprecated())
		case "deprecationReason":
			out.Values[i] = marshalOString(obj.DeprecationReason())
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
	}
	out.Dispatch(ctx)
	return out
}

var __DirectiveImplementors = []string{"__Directive"}

func (ec *executionContext) ___Directive(ctx context.Context, sel ast.SelectionSet, obj *introspection.Directive) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, __DirectiveImplementors)

	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		ctx := graphql.WithFieldContext(ctx, ec.fieldContext("__Directive", field, false))
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__Directive")
		case "name":
			out.Values[i] = graphql.MarshalString(obj.Name)
		case "description":
			out.Values[i] = marshalOString(obj.Description())
		case "locations":
			out.Values[i] = marshalList(ctx, field.Selections, obj.Locations, func(_ context.Context, _ ast.SelectionSet, v string) graphql.Marshaler {
				return graphql.MarshalString(v)
			})
		case "args":
			out.Values[i] = marshalList(ctx, field.Selections, obj.Args, ec.marshalN__InputValue)
		case "isRepeatable":
			out.Values[i] = graphql.MarshalBoolean(obj.IsRepeatable)
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
		if out.Values[i] == graphql.Null && field.Definition.Type.NonNull {
			out.Invalids++
		}
	}
	out.Dispatch(ctx)
	if out.Invalids > 0 {
		return graphql.Null
	}
	return out
}

func (ec *executionContext) marshalO__Schema(ctx context.Context, sel ast.SelectionSet, v *introspection.Schema) graphql.Marshaler {
	if v == nil {
		return graphql.Null
	}
	return ec.___Schema(ctx, sel, v)
}

func (ec *executionContext) marshalN__Type(ctx context.Context, sel ast.SelectionSet, v *introspection.Type) graphql.Marshaler {
	if v == nil {
		return nullNotAllowed(ctx)
	}
	return ec.___Type(ctx, sel, v)
}

func (ec *executionContext) marshalN__TypeValue(ctx context.Context, sel ast.SelectionSet, v introspection.Type) graphql.Marshaler {
	return ec.___Type(ctx, sel, &v)
}

func (ec *executionContext) marshalO__Type(ctx context.Context, sel ast.SelectionSet, v *introspection.Type) graphql.Marshaler {
	if v == nil {
		return graphql.Null
	}
	return ec.___Type(ctx, sel, v)
}

func (ec *executionContext) marshalN__Field(ctx context.Context, sel ast.SelectionSet, v introspection.Field) graphql.Marshaler {
	return ec.___Field(ctx, sel, &v)
}

func (ec *executionContext) marshalN__InputValue(ctx context.Context, sel ast.SelectionSet, v introspection.InputValue) graphql.Marshaler {
	return ec.___InputValue(ctx, sel, &v)
}

func (ec *executionContext) marshalN__EnumValue(ctx context.Context, sel ast.SelectionSet, v introspection.EnumValue) graphql.Marshaler {
	return ec.___EnumValue(ctx, sel, &v)
}

func (ec *executionContext) marshalN__Directive(ctx context.Context, sel ast.SelectionSet, v introspection.Directive) graphql.Marshaler {
	return ec.___Directive(ctx, sel, &v)
}
