// Copyright (c) 2024 The Data Catalog Service Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package catalog

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/datahubio/dcs/config"
)

// This is the catalog store, which holds all dataset and organization
// records. Records are kept in a bolt database under the service's data
// directory, and all access goes through a single goroutine.

// initializes the catalog store, creating its schema if necessary
func Init() error {
	if IsOpen() {
		return nil
	}
	dbPath := filepath.Join(config.Service.DataDirectory, "catalog.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return &CantOpenError{Message: err.Error()}
	}

	// set up buckets for records and for id -> name indices
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucketName := range []string{"datasets", "dataset_ids",
			"organizations", "organization_ids"} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucketName)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return &CantOpenError{Message: err.Error()}
	}

	openChannels()
	go catalogProcess(db)
	return nil
}

// saves and closes the catalog store (if it's been opened)
func Finalize() error {
	if IsOpen() {
		channels_.Input.Shutdown <- struct{}{}
		err := <-channels_.Output.Error
		closeChannels()
		return err
	}
	return nil
}

// returns true if the store is open for reading and writing, false if not
func IsOpen() bool {
	if channels_.Open { // has Init() been called?
		channels_.Input.CheckIfOpen <- struct{}{}
		select {
		case isOpen := <-channels_.Output.IsOpen:
			return isOpen
		case <-time.After(1 * time.Second): // after a second, we assume the goroutine has crashed
			closeChannels()
			return false
		}
	}
	return false
}

// creates a new dataset record (the dataset's name must not be in use by any
// live or deleted dataset)
func CreateDataset(dataset Dataset) error {
	if !IsOpen() {
		return &NotOpenError{}
	}
	channels_.Input.CreateDataset <- dataset
	return <-channels_.Output.Error
}

// overwrites the record for an existing dataset
func UpdateDataset(dataset Dataset) error {
	if !IsOpen() {
		return &NotOpenError{}
	}
	channels_.Input.UpdateDataset <- dataset
	return <-channels_.Output.Error
}

// retrieves the dataset with the given name or id
func FetchDataset(nameOrId string) (Dataset, error) {
	if !IsOpen() {
		return Dataset{}, &NotOpenError{}
	}
	channels_.Input.FetchDataset <- nameOrId
	select {
	case dataset := <-channels_.Output.Dataset:
		return dataset, nil
	case err := <-channels_.Output.Error:
		return Dataset{}, err
	}
}

// retrieves the names of all active datasets, sorted alphabetically
func ListDatasets() ([]string, error) {
	if !IsOpen() {
		return nil, &NotOpenError{}
	}
	channels_.Input.ListDatasets <- struct{}{}
	select {
	case names := <-channels_.Output.Names:
		return names, nil
	case err := <-channels_.Output.Error:
		return nil, err
	}
}

// marks the dataset with the given name or id as deleted (its name stays
// reserved)
func DeleteDataset(nameOrId string) error {
	if !IsOpen() {
		return &NotOpenError{}
	}
	channels_.Input.DeleteDataset <- nameOrId
	return <-channels_.Output.Error
}

// removes the record for the dataset with the given name or id entirely,
// freeing its name
func PurgeDataset(nameOrId string) error {
	if !IsOpen() {
		return &NotOpenError{}
	}
	channels_.Input.PurgeDataset <- nameOrId
	return <-channels_.Output.Error
}

// derives a dataset name that is not in use, starting from the given name
// and appending -1, -2, ... as needed
func UniqueDatasetName(base string) (string, error) {
	if !IsOpen() {
		return "", &NotOpenError{}
	}
	channels_.Input.UniqueName <- base
	select {
	case name := <-channels_.Output.Name:
		return name, nil
	case err := <-channels_.Output.Error:
		return "", err
	}
}

// creates a new organization record
func CreateOrganization(org Organization) error {
	if !IsOpen() {
		return &NotOpenError{}
	}
	channels_.Input.CreateOrganization <- org
	return <-channels_.Output.Error
}

// retrieves the organization with the given name or id
func FetchOrganization(nameOrId string) (Organization, error) {
	if !IsOpen() {
		return Organization{}, &NotOpenError{}
	}
	channels_.Input.FetchOrganization <- nameOrId
	select {
	case org := <-channels_.Output.Organization:
		return org, nil
	case err := <-channels_.Output.Error:
		return Organization{}, err
	}
}

//-----------
// Internals
//-----------

// The store gets its own goroutine so a crash doesn't bring down the entire
// service. Here we define "input" channels (main process -> goroutine) and
// "output" channels (goroutine -> main process) for passing data back and
// forth.

var channels_ struct {
	Open  bool // true if channels are open, false if not
	Input struct {
		CreateDataset      chan Dataset      // for creating dataset records
		UpdateDataset      chan Dataset      // for overwriting dataset records
		FetchDataset       chan string       // for fetching a dataset by name/id
		ListDatasets       chan struct{}     // for listing active dataset names
		DeleteDataset      chan string       // for marking datasets deleted
		PurgeDataset       chan string       // for removing dataset records
		UniqueName         chan string       // for deriving unused dataset names
		CreateOrganization chan Organization // for creating organization records
		FetchOrganization  chan string       // for fetching an organization
		CheckIfOpen        chan struct{}     // for checking whether the store is open
		Shutdown           chan struct{}     // for shutting down the store
	}

	Output struct {
		Dataset      chan Dataset      // for returning dataset records
		Names        chan []string     // for returning name lists
		Name         chan string       // for returning derived names
		Organization chan Organization // for returning organization records
		Error        chan error        // for returning errors
		IsOpen       chan bool         // for answering queries about whether the store is open
	}
}

func openChannels() {
	channels_.Open = true
	channels_.Input.CreateDataset = make(chan Dataset)
	channels_.Input.UpdateDataset = make(chan Dataset)
	channels_.Input.FetchDataset = make(chan string)
	channels_.Input.ListDatasets = make(chan struct{})
	channels_.Input.DeleteDataset = make(chan string)
	channels_.Input.PurgeDataset = make(chan string)
	channels_.Input.UniqueName = make(chan string)
	channels_.Input.CreateOrganization = make(chan Organization)
	channels_.Input.FetchOrganization = make(chan string)
	channels_.Input.CheckIfOpen = make(chan struct{})
	channels_.Input.Shutdown = make(chan struct{})
	channels_.Output.Dataset = make(chan Dataset)
	channels_.Output.Names = make(chan []string)
	channels_.Output.Name = make(chan string)
	channels_.Output.Organization = make(chan Organization)
	channels_.Output.Error = make(chan error)
	channels_.Output.IsOpen = make(chan bool)
}

func closeChannels() {
	channels_.Open = false
	close(channels_.Input.CreateDataset)
	close(channels_.Input.UpdateDataset)
	close(channels_.Input.FetchDataset)
	close(channels_.Input.ListDatasets)
	close(channels_.Input.DeleteDataset)
	close(channels_.Input.PurgeDataset)
	close(channels_.Input.UniqueName)
	close(channels_.Input.CreateOrganization)
	close(channels_.Input.FetchOrganization)
	close(channels_.Input.CheckIfOpen)
	close(channels_.Input.Shutdown)
	close(channels_.Output.Dataset)
	close(channels_.Output.Names)
	close(channels_.Output.Name)
	close(channels_.Output.Organization)
	close(channels_.Output.Error)
	close(channels_.Output.IsOpen)
}

// goroutine that services store requests
func catalogProcess(db *bolt.DB) {
	running := true
	for running {
		select {

		case <-channels_.Input.CheckIfOpen:
			channels_.Output.IsOpen <- true // always true if this goroutine is running!

		case dataset := <-channels_.Input.CreateDataset:
			channels_.Output.Error <- createDataset(db, dataset)

		case dataset := <-channels_.Input.UpdateDataset:
			channels_.Output.Error <- updateDataset(db, dataset)

		case nameOrId := <-channels_.Input.FetchDataset:
			dataset, err := fetchDataset(db, nameOrId)
			if err != nil {
				channels_.Output.Error <- err
			} else {
				channels_.Output.Dataset <- dataset
			}

		case <-channels_.Input.ListDatasets:
			names, err := listDatasets(db)
			if err != nil {
				channels_.Output.Error <- err
			} else {
				channels_.Output.Names <- names
			}

		case nameOrId := <-channels_.Input.DeleteDataset:
			channels_.Output.Error <- deleteDataset(db, nameOrId)

		case nameOrId := <-channels_.Input.PurgeDataset:
			channels_.Output.Error <- purgeDataset(db, nameOrId)

		case base := <-channels_.Input.UniqueName:
			name, err := uniqueDatasetName(db, base)
			if err != nil {
				channels_.Output.Error <- err
			} else {
				channels_.Output.Name <- name
			}

		case org := <-channels_.Input.CreateOrganization:
			channels_.Output.Error <- createOrganization(db, org)

		case nameOrId := <-channels_.Input.FetchOrganization:
			org, err := fetchOrganization(db, nameOrId)
			if err != nil {
				channels_.Output.Error <- err
			} else {
				channels_.Output.Organization <- org
			}

		case <-channels_.Input.Shutdown:
			err := db.Close()
			if err != nil {
				channels_.Output.Error <- &CantCloseError{Message: err.Error()}
			} else {
				channels_.Output.Error <- nil
			}
			running = false
		}
	}
}

func createDataset(db *bolt.DB, dataset Dataset) error {
	tx, err := db.Begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// dataset names must be unique across live and deleted rows
	bucket := tx.Bucket([]byte("datasets"))
	if bucket.Get([]byte(dataset.Name)) != nil {
		return &DatasetExistsError{Name: dataset.Name}
	}

	jsonBytes, err := json.Marshal(&dataset)
	if err != nil {
		return err
	}
	if err = bucket.Put([]byte(dataset.Name), jsonBytes); err != nil {
		return err
	}

	// index the dataset by its id as well
	ids := tx.Bucket([]byte("dataset_ids"))
	if err = ids.Put([]byte(dataset.Id.String()), []byte(dataset.Name)); err != nil {
		return err
	}

	return tx.Commit()
}

func updateDataset(db *bolt.DB, dataset Dataset) error {
	return db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte("datasets"))
		if bucket.Get([]byte(dataset.Name)) == nil {
			return &DatasetNotFoundError{Name: dataset.Name}
		}
		jsonBytes, err := json.Marshal(&dataset)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(dataset.Name), jsonBytes)
	})
}

func fetchDataset(db *bolt.DB, nameOrId string) (Dataset, error) {
	var dataset Dataset
	err := db.View(func(tx *bolt.Tx) error {
		value := lookupRecord(tx, "datasets", "dataset_ids", nameOrId)
		if value == nil {
			return &DatasetNotFoundError{Name: nameOrId}
		}
		return json.Unmarshal(value, &dataset)
	})
	return dataset, err
}

func listDatasets(db *bolt.DB) ([]string, error) {
	names := make([]string, 0)
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte("datasets")).ForEach(func(k, v []byte) error {
			var dataset Dataset
			if err := json.Unmarshal(v, &dataset); err != nil {
				return err
			}
			if dataset.State == StateActive {
				names = append(names, dataset.Name)
			}
			return nil
		})
	})
	slices.Sort(names)
	return names, err
}

func deleteDataset(db *bolt.DB, nameOrId string) error {
	return db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte("datasets"))
		value := lookupRecord(tx, "datasets", "dataset_ids", nameOrId)
		if value == nil {
			return &DatasetNotFoundError{Name: nameOrId}
		}
		var dataset Dataset
		if err := json.Unmarshal(value, &dataset); err != nil {
			return err
		}
		dataset.State = StateDeleted
		jsonBytes, err := json.Marshal(&dataset)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(dataset.Name), jsonBytes)
	})
}

func purgeDataset(db *bolt.DB, nameOrId string) error {
	return db.Update(func(tx *bolt.Tx) error {
		value := lookupRecord(tx, "datasets", "dataset_ids", nameOrId)
		if value == nil {
			return &DatasetNotFoundError{Name: nameOrId}
		}
		var dataset Dataset
		if err := json.Unmarshal(value, &dataset); err != nil {
			return err
		}
		if err := tx.Bucket([]byte("datasets")).Delete([]byte(dataset.Name)); err != nil {
			return err
		}
		return tx.Bucket([]byte("dataset_ids")).Delete([]byte(dataset.Id.String()))
	})
}

func uniqueDatasetName(db *bolt.DB, base string) (string, error) {
	name := base
	err := db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte("datasets"))
		for i := 1; bucket.Get([]byte(name)) != nil; i++ {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		return nil
	})
	return name, err
}

func createOrganization(db *bolt.DB, org Organization) error {
	tx, err := db.Begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	bucket := tx.Bucket([]byte("organizations"))
	if bucket.Get([]byte(org.Name)) != nil {
		return &OrganizationExistsError{Name: org.Name}
	}

	jsonBytes, err := json.Marshal(&org)
	if err != nil {
		return err
	}
	if err = bucket.Put([]byte(org.Name), jsonBytes); err != nil {
		return err
	}
	ids := tx.Bucket([]byte("organization_ids"))
	if err = ids.Put([]byte(org.Id.String()), []byte(org.Name)); err != nil {
		return err
	}

	return tx.Commit()
}

func fetchOrganization(db *bolt.DB, nameOrId string) (Organization, error) {
	var org Organization
	err := db.View(func(tx *bolt.Tx) error {
		value := lookupRecord(tx, "organizations", "organization_ids", nameOrId)
		if value == nil {
			return &OrganizationNotFoundError{Name: nameOrId}
		}
		return json.Unmarshal(value, &org)
	})
	return org, err
}

// looks up a record by name, falling back to the id -> name index
func lookupRecord(tx *bolt.Tx, bucketName, indexName, nameOrId string) []byte {
	bucket := tx.Bucket([]byte(bucketName))
	value := bucket.Get([]byte(nameOrId))
	if value == nil {
		if name := tx.Bucket([]byte(indexName)).Get([]byte(nameOrId)); name != nil {
			value = bucket.Get(name)
		}
	}
	return value
}
