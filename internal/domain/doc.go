// Package domain models SPEI drought-index rasters and the map layers drawn from them.
//
// # Data Source
//
// SPEI (Standardized Precipitation-Evapotranspiration Index) rasters are produced
// upstream from monthly CHIRPS precipitation minus MODIS potential evapotranspiration
// over Madhya Pradesh, 2004–2023, and uploaded as Earth Engine image assets under a
// single project path, e.g. "projects/cs5-pushkinmangla/assets". This package never
// computes SPEI; it only names, pairs, and styles the published rasters.
//
// # Asset Naming
//
// The export writes one asset per accumulation window:
//
//	SPEI-1  (monthly)   SPEI1_<NNN>        NNN = (year-2004)*12 + month, zero-padded to 3
//	SPEI-3  (seasonal)  SPEI3_<YYYY>_<MM>  MM ∈ {03, 06, 09, 12}
//	SPEI-12 (annual)    SPEI12_<YYYY>      December only
//
// January 2012 is therefore SPEI1_097. See [AssetName].
//
// # Value Scale
//
// SPEI is a z-score. Rendering clamps to [-2, 2] and maps linearly onto an
// 11-color diverging palette:
//
//	≤ -2   extremely dry   #8c2d04
//	   0   near normal     #f7f7f7
//	≥ +2   extremely wet   #053061
//
// # Pairing
//
// Asset names and years are paired into explicit [AssetRecord] values once, up front.
// Lookups by year take the first matching record; duplicates are not rejected.
package domain
