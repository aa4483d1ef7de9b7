// Package stix provides a typed object model for STIX 2.0 and 2.1 records:
//
// - Self-validating construction from named fields (Kind.New, New) with defaults for ids and timestamps
// - Canonical JSON serialization in declared property order (MarshalJSON, Serialize, String)
// - Parsing of JSON text or decoded mappings into the registered kind selected by "type" (Parse)
// - Bundles of heterogeneous records with lookup by id (Bundle.GetObj)
// - New versions and revocation of existing records (NewVersion, Revoke)
//
// Record types are data: a Kind pairs a discriminator with an ordered
// PropertySet of Property descriptors. The built-in kinds are declared in the
// embedded YAML catalog and registered in DefaultRegistry at package init.
//
// Typical usage:
//
//	ind, err := stix.New(ctx, stix.Version20, "indicator", stix.Fields{
//		"labels":  []string{"malicious-activity"},
//		"pattern": "[file:hashes.MD5 = 'd41d8cd98f00b204e9800998ecf8427e']",
//	})
//	obj, err := stix.Parse(ctx, data, stix.ParseOpt{AllowCustom: true})
//	b, err := stix.NewBundle(ctx, stix.Version21, ind, obj)
package stix
