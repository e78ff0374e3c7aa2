package vc

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/iotaledger/identity.rs-sub007/credential/common/verror"
)

// SchemaLoaderFunc maps a credentialSchema id to a schema loader. The
// default dereferences the id as a URL; tests and offline deployments
// can substitute a local loader.
type SchemaLoaderFunc func(schemaID string) gojsonschema.JSONLoader

func defaultSchemaLoader(schemaID string) gojsonschema.JSONLoader {
	return gojsonschema.NewReferenceLoader(schemaID)
}

// validateSchemas checks the credential body against every schema it
// declares.
func validateSchemas(doc map[string]interface{}, schemas []Schema, load SchemaLoaderFunc) error {
	if load == nil {
		load = defaultSchemaLoader
	}

	for _, schema := range schemas {
		if schema.ID == "" {
			return verror.New(verror.KindStructural, "credentialSchema entry is missing the id property")
		}

		result, err := gojsonschema.Validate(load(schema.ID), gojsonschema.NewGoLoader(doc))
		if err != nil {
			return verror.Wrap(verror.KindStructural, "failed to evaluate credential schema "+schema.ID, err)
		}

		if !result.Valid() {
			return verror.Newf(verror.KindStructural,
				"credential does not conform to schema %s: %v", schema.ID, result.Errors())
		}
	}

	return nil
}
