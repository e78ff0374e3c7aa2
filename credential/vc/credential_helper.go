package vc

import (
	"time"

	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
	"github.com/iotaledger/identity.rs-sub007/credential/status"
)

// serializeContents turns contents into the credential's JSON object.
func serializeContents(contents *Contents) (map[string]interface{}, error) {
	if contents == nil {
		return nil, verror.New(verror.KindConfiguration, "credential contents is nil")
	}

	doc := make(map[string]interface{})
	if len(contents.Context) > 0 {
		doc["@context"] = append([]interface{}{}, contents.Context...)
	}
	if contents.ID != "" {
		doc["id"] = contents.ID
	}
	if len(contents.Types) > 0 {
		doc["type"] = serializeStrings(contents.Types)
	}
	if contents.Issuer != "" {
		doc["issuer"] = contents.Issuer
	}
	if len(contents.Subject) > 0 {
		doc["credentialSubject"] = serializeSubjects(contents.Subject)
	}
	if len(contents.Status) > 0 {
		doc["credentialStatus"] = serializeStatuses(contents.Status)
	}
	if len(contents.Schemas) > 0 {
		doc["credentialSchema"] = serializeSchemas(contents.Schemas)
	}
	if !contents.ValidFrom.IsZero() {
		doc["validFrom"] = contents.ValidFrom.UTC().Format(time.RFC3339)
	}
	if !contents.ValidUntil.IsZero() {
		doc["validUntil"] = contents.ValidUntil.UTC().Format(time.RFC3339)
	}
	if contents.NonTransferable {
		doc["nonTransferable"] = true
	}

	return doc, nil
}

// serializeStrings keeps single-element arrays as a bare string, the
// compact form most issuers emit.
func serializeStrings(values []string) interface{} {
	if len(values) == 1 {
		return values[0]
	}

	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}

	return out
}

func serializeSubjects(subjects []Subject) interface{} {
	if len(subjects) == 1 {
		return serializeSubject(subjects[0])
	}

	out := make([]interface{}, len(subjects))
	for i, s := range subjects {
		out[i] = serializeSubject(s)
	}

	return out
}

func serializeSubject(subject Subject) map[string]interface{} {
	obj := make(map[string]interface{}, len(subject.CustomFields)+1)
	for key, value := range subject.CustomFields {
		obj[key] = value
	}
	if subject.ID != "" {
		obj["id"] = subject.ID
	}

	return obj
}

func serializeStatuses(statuses []status.Descriptor) interface{} {
	if len(statuses) == 1 {
		return serializeStatus(statuses[0])
	}

	out := make([]interface{}, len(statuses))
	for i, s := range statuses {
		out[i] = serializeStatus(s)
	}

	return out
}

func serializeStatus(desc status.Descriptor) map[string]interface{} {
	obj := make(map[string]interface{}, len(desc.Properties)+2)
	for key, value := range desc.Properties {
		obj[key] = value
	}
	if desc.ID != "" {
		obj["id"] = desc.ID
	}
	obj["type"] = desc.Type

	return obj
}

func serializeSchemas(schemas []Schema) interface{} {
	if len(schemas) == 1 {
		return serializeSchema(schemas[0])
	}

	out := make([]interface{}, len(schemas))
	for i, s := range schemas {
		out[i] = serializeSchema(s)
	}

	return out
}

func serializeSchema(schema Schema) map[string]interface{} {
	return map[string]interface{}{"id": schema.ID, "type": schema.Type}
}

// parseContents extracts the tracked fields from a credential's JSON
// object. Unknown fields are preserved in the document, not here.
func parseContents(doc map[string]interface{}) (Contents, error) {
	var contents Contents

	parsers := []func(map[string]interface{}, *Contents) error{
		parseContext,
		parseID,
		parseTypes,
		parseIssuer,
		parseDates,
		parseSubject,
		parseStatus,
		parseSchema,
		parseNonTransferable,
	}
	for _, parse := range parsers {
		if err := parse(doc, &contents); err != nil {
			return Contents{}, err
		}
	}

	return contents, nil
}

func parseContext(doc map[string]interface{}, contents *Contents) error {
	switch context := doc["@context"].(type) {
	case nil:
	case string:
		contents.Context = append(contents.Context, context)
	case []interface{}:
		for _, entry := range context {
			switch v := entry.(type) {
			case string, map[string]interface{}:
				contents.Context = append(contents.Context, v)
			default:
				return verror.Newf(verror.KindStructural, "unsupported @context entry type: %T", v)
			}
		}
	default:
		return verror.Newf(verror.KindStructural, "unsupported @context type: %T", context)
	}

	return nil
}

func parseID(doc map[string]interface{}, contents *Contents) error {
	if id, ok := doc["id"].(string); ok {
		contents.ID = id
	}

	return nil
}

func parseTypes(doc map[string]interface{}, contents *Contents) error {
	switch types := doc["type"].(type) {
	case nil:
	case string:
		contents.Types = append(contents.Types, types)
	case []interface{}:
		for _, entry := range types {
			s, ok := entry.(string)
			if !ok {
				return verror.Newf(verror.KindStructural, "unsupported type entry: %T", entry)
			}
			contents.Types = append(contents.Types, s)
		}
	default:
		return verror.Newf(verror.KindStructural, "unsupported type field: %T", types)
	}

	return nil
}

func parseIssuer(doc map[string]interface{}, contents *Contents) error {
	switch issuer := doc["issuer"].(type) {
	case nil:
	case string:
		contents.Issuer = issuer
	case map[string]interface{}:
		id, ok := issuer["id"].(string)
		if !ok {
			return verror.New(verror.KindStructural, "issuer object is missing the id property")
		}
		contents.Issuer = id
	default:
		return verror.Newf(verror.KindStructural, "unsupported issuer type: %T", issuer)
	}

	return nil
}

func parseDates(doc map[string]interface{}, contents *Contents) error {
	validFrom, err := parseDate(doc, "validFrom", "issuanceDate")
	if err != nil {
		return err
	}
	contents.ValidFrom = validFrom

	validUntil, err := parseDate(doc, "validUntil", "expirationDate")
	if err != nil {
		return err
	}
	contents.ValidUntil = validUntil

	return nil
}

// parseDate reads a timestamp under its current name, falling back to
// the legacy v1.1 name.
func parseDate(doc map[string]interface{}, name, legacyName string) (time.Time, error) {
	raw, ok := doc[name].(string)
	if !ok {
		raw, ok = doc[legacyName].(string)
	}
	if !ok {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, verror.Wrap(verror.KindStructural, "failed to parse "+name, err)
	}

	return t, nil
}

func parseSubject(doc map[string]interface{}, contents *Contents) error {
	switch subject := doc["credentialSubject"].(type) {
	case nil:
	case string:
		contents.Subject = []Subject{{ID: subject}}
	case map[string]interface{}:
		contents.Subject = []Subject{subjectFromObject(subject)}
	case []interface{}:
		subjects := make([]Subject, 0, len(subject))
		for _, entry := range subject {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				return verror.Newf(verror.KindStructural, "unsupported credentialSubject entry: %T", entry)
			}
			subjects = append(subjects, subjectFromObject(obj))
		}
		contents.Subject = subjects
	default:
		return verror.Newf(verror.KindStructural, "unsupported credentialSubject type: %T", subject)
	}

	return nil
}

func subjectFromObject(obj map[string]interface{}) Subject {
	var subject Subject
	subject.CustomFields = make(map[string]interface{}, len(obj))
	for key, value := range obj {
		if key == "id" {
			if id, ok := value.(string); ok {
				subject.ID = id
				continue
			}
		}
		subject.CustomFields[key] = value
	}

	return subject
}

func parseStatus(doc map[string]interface{}, contents *Contents) error {
	switch st := doc["credentialStatus"].(type) {
	case nil:
	case map[string]interface{}:
		contents.Status = append(contents.Status, statusFromObject(st))
	case []interface{}:
		for _, entry := range st {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				return verror.Newf(verror.KindStructural, "unsupported credentialStatus entry: %T", entry)
			}
			contents.Status = append(contents.Status, statusFromObject(obj))
		}
	default:
		return verror.Newf(verror.KindStructural, "unsupported credentialStatus type: %T", st)
	}

	return nil
}

// statusFromObject splits a status object into its id/type identity and
// the mechanism-specific properties.
func statusFromObject(obj map[string]interface{}) status.Descriptor {
	desc := status.Descriptor{Properties: make(map[string]interface{}, len(obj))}
	for key, value := range obj {
		switch key {
		case "id":
			if id, ok := value.(string); ok {
				desc.ID = id
				continue
			}
		case "type":
			if t, ok := value.(string); ok {
				desc.Type = t
				continue
			}
		}
		desc.Properties[key] = value
	}

	return desc
}

func parseSchema(doc map[string]interface{}, contents *Contents) error {
	switch schema := doc["credentialSchema"].(type) {
	case nil:
	case map[string]interface{}:
		contents.Schemas = append(contents.Schemas, schemaFromValue(schema))
	case []interface{}:
		for _, entry := range schema {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				return verror.Newf(verror.KindStructural, "unsupported credentialSchema entry: %T", entry)
			}
			contents.Schemas = append(contents.Schemas, schemaFromValue(obj))
		}
	default:
		return verror.Newf(verror.KindStructural, "unsupported credentialSchema type: %T", schema)
	}

	return nil
}

func schemaFromValue(obj map[string]interface{}) Schema {
	var schema Schema
	if id, ok := obj["id"].(string); ok {
		schema.ID = id
	}
	if t, ok := obj["type"].(string); ok {
		schema.Type = t
	}

	return schema
}

func parseNonTransferable(doc map[string]interface{}, contents *Contents) error {
	if nt, ok := doc["nonTransferable"].(bool); ok {
		contents.NonTransferable = nt
	}

	return nil
}
