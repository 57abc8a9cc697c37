/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package probe

// ModelInfo is the marketing size and release year of a Mac model.
type ModelInfo struct {
	Size string
	Year int
}

const (
	size13 = "13-inch"
	size14 = "14-inch"
	size16 = "16-inch"
)

//nolint:gochecknoglobals // static lookup table
var modelCatalog = map[string]ModelInfo{
	"Mac16,1":        {size14, 2024},
	"Mac16,5":        {size16, 2024},
	"Mac16,6":        {size14, 2024},
	"Mac16,7":        {size16, 2024},
	"Mac16,8":        {size14, 2024},
	"Mac15,3":        {size14, 2023},
	"Mac15,6":        {size14, 2023},
	"Mac15,7":        {size16, 2023},
	"Mac15,8":        {size14, 2023},
	"Mac15,9":        {size16, 2023},
	"Mac15,10":       {size14, 2023},
	"Mac15,11":       {size16, 2023},
	"Mac14,5":        {size14, 2023},
	"Mac14,6":        {size16, 2023},
	"Mac14,7":        {size13, 2022},
	"Mac14,9":        {size14, 2023},
	"Mac14,10":       {size16, 2023},
	"MacBookPro18,1": {size16, 2021},
	"MacBookPro18,2": {size16, 2021},
	"MacBookPro18,3": {size14, 2021},
	"MacBookPro18,4": {size14, 2021},
	"MacBookPro17,1": {size13, 2020},
	"MacBookPro16,1": {size16, 2019},
	"MacBookPro16,2": {size13, 2020},
	"MacBookPro16,3": {size13, 2020},
	"MacBookPro16,4": {size16, 2019},
	"MacBookPro14,2": {size13, 2017},
	"MacBookPro12,1": {size13, 2015},
}

// LookupModel returns the size and year of a model identifier such as
// "MacBookPro18,3".
func LookupModel(identifier string) (ModelInfo, bool) {
	info, ok := modelCatalog[identifier]
	return info, ok
}
