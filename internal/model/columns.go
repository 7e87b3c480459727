package model

// Raw extract columns.
const (
	ColParcel       = "Parcel Number"
	ColAddress      = "Address"
	ColBBB          = "BBB"
	ColYearBuilt    = "Year Built"
	ColTransferDate = "Transfer Date"
	ColSaleAmount   = "Sale Amount"
	ColFinishedSqFt = "Finished Sq Ft"
)

// Derived columns.
const (
	ColRooms       = "Rooms"
	ColBedrooms    = "Bedrooms"
	ColFullBaths   = "Full Baths"
	ColHalfBaths   = "Half Baths"
	ColAddresses   = "Addresses"
	ColCoordinates = "Coordinates"
	ColAge         = "Age"
	ColAgeFloored  = "Age Floored"
	ColNegativeAge = "Negative Age"
	ColPrice       = "Price"
	ColRealPrice   = "Real Price"
)

// Auditor columns.
const (
	ColSchoolDistrict = "School District"
	ColDeedType       = "Deed Type"
	ColAcreage        = "Acreage"
	ColOwnerResidence = "Owner Residence"
	ColForeclosure    = "Foreclosure"
)

// AuditorColumns lists the scraped columns in output order.
var AuditorColumns = []string{
	ColSchoolDistrict,
	ColDeedType,
	ColAcreage,
	ColOwnerResidence,
	ColForeclosure,
}
