// Package tie is a client-side convenience layer for consuming TIE
// reputation change events from the message fabric. It normalizes the wire
// payload (hash encodings, wrapped reputation tables, certificate
// relationship fields) and dispatches the result to user-supplied handlers.
package tie

// Top-level property names in a reputation change payload.
const (
	PropHashes         = "hashes"
	PropNewReputations = "newReputations"
	PropOldReputations = "oldReputations"
	PropUpdateTime     = "updateTime"
	PropRelationships  = "relationships"
	PropPublicKeySHA1  = "publicKeySha1"
)

// Hash type names used as keys in the hashes mapping.
const (
	HashMD5    = "md5"
	HashSHA1   = "sha1"
	HashSHA256 = "sha256"
)

// Property names within a single reputation entry.
const (
	RepPropAttributes = "attributes"
	RepPropCreateDate = "createDate"
	RepPropProviderID = "providerId"
	RepPropTrustLevel = "trustLevel"
)

// Well-known file reputation providers.
const (
	FileProviderEnterprise = 1 // Enterprise reputation service
	FileProviderGTI        = 3 // Global Threat Intelligence
	FileProviderATD        = 5 // Advanced Threat Defense
	FileProviderMWG        = 7 // Web Gateway
)

// Well-known certificate reputation providers.
const (
	CertProviderEnterprise = 2 // Enterprise reputation service
	CertProviderGTI        = 4 // Global Threat Intelligence
)

// Trust level landmarks. Trust levels are integers in [0, 100]; values
// between landmarks are valid.
const (
	TrustNotSet                = 0
	TrustKnownMalicious        = 1
	TrustMostLikelyMalicious   = 15
	TrustMightBeMalicious      = 30
	TrustUnknown               = 50
	TrustMightBeTrusted        = 70
	TrustMostLikelyTrusted     = 85
	TrustKnownTrusted          = 99
	TrustKnownTrustedInstaller = 100
)
