// Package mycogo classifies mushrooms as edible or poisonous with a
// gradient-boosted tree ensemble trained on the secondary mushroom
// dataset, and serves predictions over HTTP.
//
// The repository covers the whole loop: loading and cleaning the raw
// semicolon-separated data, encoding categorical columns, training with
// early stopping, evaluating on a stratified hold-out, persisting a
// self-contained artifact bundle, and answering prediction requests
// from that bundle.
//
// # Quick Start
//
// Train a model and serve it:
//
//	mycogo train --data data/secondary_data.csv -o artifacts/mushroom_model.gob
//	mycogo serve --artifact artifacts/mushroom_model.gob
//
// Then ask it about a mushroom:
//
//	curl -X POST localhost:8000/predict -d '{
//	    "cap-diameter": 8.5, "cap-shape": "x", "cap-surface": "s",
//	    "cap-color": "n", "does-bruise-or-bleed": "f",
//	    "gill-attachment": "f", "gill-spacing": "c", "gill-color": "k",
//	    "stem-height": 7.2, "stem-width": 6.5, "stem-surface": "s",
//	    "stem-color": "w", "has-ring": "t", "ring-type": "p",
//	    "habitat": "d", "season": "s"
//	}'
//
// A "spore-print-color" field may be added to the request; the model
// only uses whether one was reported, not the color itself.
//
// # Packages
//
//   - dataset: delimited loading, cleaning, imputation, stratified split
//   - preprocessing: one-hot encoding with frozen fit-time vocabularies
//   - boosting: the gradient-boosted trainer, model and classifier
//   - metrics: binary classification metrics (accuracy, F1, log loss, AUC)
//   - artifact: the serialized model+encoder bundle and its validation
//   - inference: record validation, feature mapping and the prediction engine
//   - pipeline: the end-to-end training flow behind the train command
//   - server: the HTTP prediction API behind the serve command
//   - core/model: estimator state and gob persistence helpers
//   - core/parallel: row-chunking helpers for batch prediction
//   - pkg/errors, pkg/log: shared error types and structured logging
//
// # License
//
// mycogo is released under the MIT License.
package mycogo
